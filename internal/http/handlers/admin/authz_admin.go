package admin

import (
	handlershared "github.com/modamart/internal/http/handlers/shared"
	"github.com/modamart/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetRolePolicies 查询角色的直接策略
func (h *Handler) GetRolePolicies(c *gin.Context) {
	policies, err := h.AuthzService.GetRolePolicies(c.Param("role"))
	if err != nil {
		handlershared.RespondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	response.Success(c, policies)
}
