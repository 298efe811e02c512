package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
	MinLimit     = 1
)

// Params holds validated pagination parameters
type Params struct {
	Skip  int
	Limit int
}

// Parse extracts skip/limit from query parameters. A page parameter, when present,
// is translated into the equivalent skip.
func Parse(c *gin.Context) Params {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	if err != nil || limit < MinLimit {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		skip = 0
	}
	if raw := c.Query("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page >= 1 {
			skip = (page - 1) * limit
		}
	}

	return Params{Skip: skip, Limit: limit}
}
