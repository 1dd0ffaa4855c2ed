// Package cachekey builds the deterministic cache keys used by the currency
// service. Codes are expected upper-cased by the caller.
package cachekey

import (
	"fmt"
	"time"

	"valuta-service/pkg/utils"
)

func Latest(base string) string {
	return fmt.Sprintf("latest:%s", base)
}

func Conversion(from, to string) string {
	return fmt.Sprintf("convert:%s:%s", from, to)
}

func Historical(base string, start, end time.Time) string {
	return fmt.Sprintf("historical:%s:%s:%s", base, utils.FormatDate(start), utils.FormatDate(end))
}
