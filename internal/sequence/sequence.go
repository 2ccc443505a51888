// Package sequence 批量创建班级时的顺序命名：PROGRAM + 年级 + "-" + 序号（如 BSIT1-4）。
//
// 生成结果只保证与调用时传入的已有名称不冲突；并发生成同一范围时可能重复，
// 最终唯一性由数据库约束裁决。
package sequence

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Prefix 返回规范化（大写）的名称前缀，如 "BSIT1-"
func Prefix(programCode string, yearLevel int) string {
	return fmt.Sprintf("%s%d-", strings.ToUpper(strings.TrimSpace(programCode)), yearLevel)
}

// Format 拼出第 n 个名称
func Format(programCode string, yearLevel, n int) string {
	return Prefix(programCode, yearLevel) + strconv.Itoa(n)
}

// MaxIndex 扫描已有名称，返回匹配前缀的最大序号；没有匹配时为 0
func MaxIndex(programCode string, yearLevel int, existing []string) int {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(Prefix(programCode, yearLevel)) + `(\d+)$`)
	maxN := 0
	for _, name := range existing {
		m := pattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(name)))
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		maxN = max(maxN, n)
	}
	return maxN
}

func valid(programCode string, yearLevel int) bool {
	return strings.TrimSpace(programCode) != "" && yearLevel > 0
}

// Preview 下一个可用序号（最大值 + 1，不回填空缺）；参数缺失时返回 0
func Preview(programCode string, yearLevel int, existing []string) int {
	if !valid(programCode, yearLevel) {
		return 0
	}
	return MaxIndex(programCode, yearLevel, existing) + 1
}

// Generate 从最大序号之后连续生成 count 个名称；参数缺失时返回空列表
func Generate(programCode string, yearLevel, count int, existing []string) []string {
	if !valid(programCode, yearLevel) || count <= 0 {
		return []string{}
	}
	next := MaxIndex(programCode, yearLevel, existing) + 1
	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		names = append(names, Format(programCode, yearLevel, next+i))
	}
	return names
}
