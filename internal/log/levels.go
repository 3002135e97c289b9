package log

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// levelNames lists the accepted level names, least severe first, for error
// messages.
var levelNames = func() []string {
	names := make([]string, len(logrus.AllLevels))
	for i, lvl := range logrus.AllLevels {
		names[len(names)-1-i] = lvl.String()
	}
	return names
}()

// parseLevel parses a level name from a flag, the environment or a log file
// config line. Case and surrounding spaces are ignored.
func parseLevel(name string) (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return 0, fmt.Errorf("unknown log level %s, expected one of %s", name, strings.Join(levelNames, ", "))
	}
	return lvl, nil
}

// parseLevels returns level and every level more severe than it.
func parseLevels(level string) ([]logrus.Level, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	index := sort.Search(len(logrus.AllLevels), func(i int) bool {
		return logrus.AllLevels[i] > lvl
	})

	return logrus.AllLevels[:index], nil
}
