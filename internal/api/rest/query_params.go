package rest

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ListQuery holds parsed pagination parameters
type ListQuery struct {
	Limit  int
	Offset int
}

// ParseListQuery parses and validates limit/offset query parameters
func ParseListQuery(c *gin.Context) (*ListQuery, error) {
	q := &ListQuery{
		Limit:  defaultListLimit,
		Offset: 0,
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return nil, fmt.Errorf("limit must be a positive integer")
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		q.Limit = limit
	}

	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return nil, fmt.Errorf("offset must be a non-negative integer")
		}
		q.Offset = offset
	}

	return q, nil
}

// parseYearMonth parses the :year/:month path parameters
func parseYearMonth(c *gin.Context) (int, int, error) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1 {
		return 0, 0, fmt.Errorf("year must be a positive integer")
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month must be between 1 and 12")
	}
	return year, month, nil
}

// parseProductID parses the :id path parameter
func parseProductID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("product id must be a positive integer")
	}
	return id, nil
}
