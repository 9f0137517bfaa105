// internal/utils/pagination.go
package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type PaginationParams struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type PaginationResult struct {
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
	Count  int         `json:"count"`
	Data   interface{} `json:"data"`
}

// Normalize clamps the limit into (0, MaxPageLimit] and the offset to >= 0.
func (p PaginationParams) Normalize() PaginationParams {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// GetPaginationParams reads limit/offset, accepting page as an alternative to offset.
func GetPaginationParams(c *gin.Context) PaginationParams {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageLimit)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	params := PaginationParams{Limit: limit, Offset: offset}.Normalize()
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 1 && c.Query("offset") == "" {
		params.Offset = (page - 1) * params.Limit
	}
	return params
}

func ApplyPagination(db *gorm.DB, params PaginationParams) *gorm.DB {
	params = params.Normalize()
	return db.Offset(params.Offset).Limit(params.Limit)
}

func CreatePaginationResult(data interface{}, count int, params PaginationParams) PaginationResult {
	return PaginationResult{
		Limit:  params.Limit,
		Offset: params.Offset,
		Count:  count,
		Data:   data,
	}
}

func SetPaginationHeaders(c *gin.Context, result PaginationResult) {
	c.Header("X-Limit", strconv.Itoa(result.Limit))
	c.Header("X-Offset", strconv.Itoa(result.Offset))
	c.Header("X-Count", strconv.Itoa(result.Count))
}
