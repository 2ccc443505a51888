package cli

import "github.com/fatih/color"

var (
	colorHeader  = color.New(color.Bold)
	colorOK      = color.New(color.FgGreen)
	colorProblem = color.New(color.FgRed, color.Bold)
	colorMuted   = color.New(color.FgWhite, color.Faint)
)

// DisableColor 关闭彩色输出（重定向到文件或 --no-color）
func DisableColor() {
	color.NoColor = true
}
