package rar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// volumeNamer produces the path of the nth volume (0-indexed, 0 is the
// base archive) of an archive whose first volume's path is base.
type volumeNamer func(base string, volume int) (string, error)

// trailingDigitsRe finds the last run of digits in a path, used by the
// new-style ("part001.rar"-style) volume name generator to zero-pad.
var trailingDigitsRe = regexp.MustCompile(`([0-9]+)[^0-9]*$`)

// genNewVolumeName implements the post-3.0 naming scheme: the last digit
// run before the extension is replaced by volume+1, zero-padded to its
// original width, e.g. "foo.part001.rar" with volume 1 -> "foo.part002.rar".
func genNewVolumeName(base string, volume int) (string, error) {
	loc := trailingDigitsRe.FindStringSubmatchIndex(base)
	if loc == nil {
		return "", fmt.Errorf("rar: cannot construct new-style volume name from %q", base)
	}
	start, end := loc[2], loc[3]
	width := end - start
	return fmt.Sprintf("%s%0*d%s", base[:start], width, volume+1, base[end:]), nil
}

// genOldVolumeName implements the classic .rar/.r00/.r01/.s00 naming
// scheme, including the legacy 001/002/... numbering used when the first
// volume's name itself ends in "001".
func genOldVolumeName(base string, volume int) (string, error) {
	if volume == 0 {
		return base, nil
	}

	i := strings.LastIndex(base, ".")
	if i < 0 {
		return "", fmt.Errorf("rar: cannot construct old-style volume name from %q", base)
	}
	stem := base[:i]

	var ext string
	switch {
	case strings.HasSuffix(base, "001"):
		ext = fmt.Sprintf(".%03d", volume+1)
	case volume <= 100:
		ext = fmt.Sprintf(".r%02d", volume-1)
	default:
		ext = fmt.Sprintf(".s%02d", volume-101)
	}

	return stem + ext, nil
}

// rarNameRe matches a path that looks like a RAR volume member: a classic
// "part01"/"part001"-style first volume, a ".rNN"/".rar" extension, or a
// bare trailing 2-3 digit run.
var rarNameRe = regexp.MustCompile(`(?i)^.*?(?:\.part(\d{2,3})\.rar|\.r(ar|\d{2})|(\d{2,3}))$`)

// IsFirstVolumeName reports whether name looks like the first volume of a
// multi-volume archive (as opposed to a later part, which wouldn't be a
// sensible name to open directly): "part01"/"part001" matches with group 1
// equal to "01"/"001", a plain ".rar" extension, or a bare trailing "001".
func IsFirstVolumeName(name string) bool {
	m := rarNameRe.FindStringSubmatch(name)
	if m == nil {
		return false
	}

	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		return err == nil && n == 1
	}
	if m[2] != "" {
		return strings.EqualFold(m[2], "ar")
	}
	// A bare trailing digit run (".001", ".002", ...) without "part" or
	// ".rNN": only the "001" spelling denotes a first volume.
	return m[3] == "001"
}

// LooksLikeRarVolume reports whether name matches the RAR volume naming
// convention at all, first volume or not.
func LooksLikeRarVolume(name string) bool {
	return rarNameRe.MatchString(name)
}
