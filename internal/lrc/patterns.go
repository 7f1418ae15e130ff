package lrc

import "regexp"

var (
	DotTimestampPattern   *regexp.Regexp
	ColonTimestampPattern *regexp.Regexp
	TagPattern            *regexp.Regexp
)

func init() {
	DotTimestampPattern = regexp.MustCompile(`^\[(\d+):(\d+)\.(\d+)\]`)
	ColonTimestampPattern = regexp.MustCompile(`^\[(\d+):(\d+):(\d+)\]`)
	TagPattern = regexp.MustCompile(`^\[([A-Za-z]+):(.*)\]$`)
}
