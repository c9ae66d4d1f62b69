package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID is the rate-limit identity of the caller: the user id when
// authenticated, "anon" otherwise.
func currentUserID(c echo.Context) string {
	if u := CurrentUser(c); u != nil {
		return strconv.FormatUint(u.ID, 10)
	}
	return "anon"
}
