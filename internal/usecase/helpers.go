package usecase

import (
	"fmt"
	"regexp"
	"time"

	"github.com/semmidev/mysqlbackup/internal/domain"
)

var (
	runStampPattern = regexp.MustCompile(regexp.QuoteMeta(domain.RunDirPrefix) + `(\d{12})`)
	runFilePattern  = regexp.MustCompile(`^` + regexp.QuoteMeta(domain.RunDirPrefix) + `\d{12}/`)
)

// isRunFile reports whether a remote name lives under a run directory this
// tool uploaded, e.g. "mysqlbackup_202401021530/app/20240102_users.sql.gz".
func isRunFile(name string) bool {
	return runFilePattern.MatchString(name)
}

// extractTimestamp reads the run start out of a remote name such as
// "mysqlbackup_202401021530/app/20240102_users.sql.gz".
func extractTimestamp(name string) (time.Time, error) {
	matches := runStampPattern.FindStringSubmatch(name)
	if len(matches) < 2 {
		return time.Time{}, fmt.Errorf("invalid name format: no run timestamp found")
	}

	return time.ParseInLocation("200601021504", matches[1], time.Local)
}
