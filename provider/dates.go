package provider

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/imetrics/go-connect-server/internal/errors"
	"github.com/pkg/errors"
)

const dateLayout = "2006-01-02"

var daysAgoPattern = regexp.MustCompile(`^(\d+)daysAgo$`)

// ResolveDate turns a date expression into an absolute YYYY-MM-DD date at the
// given instant. Supported: "today", "yesterday", "NdaysAgo" and absolute
// YYYY-MM-DD values.
func ResolveDate(expr string, now time.Time) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", errors.Wrap(apperrors.ErrInvalidDateExpression, "empty expression")
	}

	switch expr {
	case "today":
		return now.Format(dateLayout), nil
	case "yesterday":
		return now.AddDate(0, 0, -1).Format(dateLayout), nil
	}

	if m := daysAgoPattern.FindStringSubmatch(expr); m != nil {
		days, err := strconv.Atoi(m[1])
		if err != nil {
			return "", errors.Wrapf(apperrors.ErrInvalidDateExpression, "%q", expr)
		}
		return now.AddDate(0, 0, -days).Format(dateLayout), nil
	}

	if parsed, err := time.Parse(dateLayout, expr); err == nil {
		return parsed.Format(dateLayout), nil
	}

	return "", errors.Wrapf(apperrors.ErrInvalidDateExpression, "%q", expr)
}

// ResolveDateRange resolves both ends of a range to absolute dates.
func ResolveDateRange(dr DateRange, now time.Time) (DateRange, error) {
	start, err := ResolveDate(dr.Start, now)
	if err != nil {
		return DateRange{}, err
	}
	end, err := ResolveDate(dr.End, now)
	if err != nil {
		return DateRange{}, err
	}
	return DateRange{Start: start, End: end}, nil
}
