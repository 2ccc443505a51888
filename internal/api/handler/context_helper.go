package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campus-registrar/backend/pkg/response"
)

// OperatorHeader 调用方标识，写入 created_by / updated_by
const OperatorHeader = "X-Operator"

// operatorMaxLen 与 created_by 列宽一致
const operatorMaxLen = 64

// GetOperator 读取操作人；未提供或超长时为空
func GetOperator(c *gin.Context) string {
	op := strings.TrimSpace(c.GetHeader(OperatorHeader))
	if len(op) > operatorMaxLen {
		return ""
	}
	return op
}

// MustParamUUID 读取并校验 UUID 路径参数。
// 校验失败时写入 400 响应，调用方应在 ok=false 时直接 return。
func MustParamUUID(c *gin.Context, name, label string) (string, bool) {
	id := c.Param(name)
	if id == "" {
		response.BadRequest(c, 10001, label+"不能为空")
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		response.BadRequest(c, 10001, label+"格式无效")
		return "", false
	}
	return id, true
}
