package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func parseQuery(query string) Params {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return Parse(c)
}

func TestParse(t *testing.T) {
	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Skip: 0, Limit: DefaultLimit}},
		{"skip=20&limit=10", Params{Skip: 20, Limit: 10}},
		{"skip=-5&limit=0", Params{Skip: 0, Limit: DefaultLimit}},
		{"limit=5000", Params{Skip: 0, Limit: MaxLimit}},
		{"limit=abc&skip=xyz", Params{Skip: 0, Limit: DefaultLimit}},
		{"page=3&limit=25", Params{Skip: 50, Limit: 25}},
		{"page=0&skip=7", Params{Skip: 7, Limit: DefaultLimit}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseQuery(tt.query), tt.query)
	}
}
