package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// NormalizeNumber trims a display label and zero-pads numeric labels to two
// digits so "7" and "07" name the same table.
func NormalizeNumber(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
		return fmt.Sprintf("%02d", n)
	}
	return strings.ToUpper(raw)
}

// SuggestNumber returns the first positive integer missing from the numeric
// labels in existing, zero-padded to two digits. Non-numeric labels are ignored.
func SuggestNumber(existing []string) string {
	return fmt.Sprintf("%02d", firstGap(existing, ""))
}

// SuggestExternalLabel applies the same gap search to labels of the form
// "<prefix>-<n>".
func SuggestExternalLabel(prefix string, existing []string) string {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	return fmt.Sprintf("%s-%02d", prefix, firstGap(existing, prefix+"-"))
}

func firstGap(existing []string, prefix string) int {
	nums := make([]int, 0, len(existing))
	for _, label := range existing {
		label = strings.ToUpper(strings.TrimSpace(label))
		if prefix != "" {
			if !strings.HasPrefix(label, prefix) {
				continue
			}
			label = strings.TrimPrefix(label, prefix)
		}
		n, err := strconv.Atoi(label)
		if err != nil || n <= 0 {
			continue
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)

	next := 1
	for _, n := range nums {
		if n == next {
			next++
		} else if n > next {
			break
		}
	}
	return next
}
