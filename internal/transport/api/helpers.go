package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fsdevblog/groph-lend/internal/transport/api/middlewares"
)

// getUserIDFromContext возвращает id текущего юзера, записанный auth-мидлварой.
// Ноль означает что запрос не прошел через AuthRequired.
func getUserIDFromContext(c *gin.Context) int64 {
	id, _ := c.Get(middlewares.CurrentUserIDKey)
	userID, _ := id.(int64)
	return userID
}

// parseIDParam разбирает числовой :id из пути.
func parseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
