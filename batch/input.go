package batch

import (
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// resolveURLs merges the input file's URLs (first) with the argument URLs.
// The file parses as a JSON string array when it looks like one, otherwise as
// newline-separated text with blank lines dropped.
func resolveURLs(inputFile string, args []string) ([]string, error) {
	var urls []string

	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, errors.Wrap(err, "reading input file")
		}
		urls = parseURLList(data)
	}

	for _, u := range args {
		u = strings.TrimSpace(u)
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func parseURLList(data []byte) []string {
	var fromJSON []string
	if err := sonic.Unmarshal(data, &fromJSON); err == nil {
		var urls []string
		for _, u := range fromJSON {
			u = strings.TrimSpace(u)
			if u != "" {
				urls = append(urls, u)
			}
		}
		return urls
	}

	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			urls = append(urls, line)
		}
	}
	return urls
}
