package http

import (
	xutil "AutoTrade/pkg/util"

	"github.com/labstack/echo/v4"
)

// QueryInt reads an integer query parameter bounded to [lo, hi], or def when absent or invalid.
func QueryInt(c echo.Context, name string, def, lo, hi int) int {
	return xutil.ClampInt(xutil.ParseIntDefault(c.QueryParam(name), def), lo, hi)
}
