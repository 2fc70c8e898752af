// Package keywords loads the keyword rule file. The file is a plain text
// list of groups separated by blank lines: a normal line is a match term,
// a line starting with '!' is a filter word for its group, and a group made
// only of '!' lines contributes global filter words applied to every group.
// Lines starting with '#' are comments.
package keywords

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/trendwatch/trendwatch/internal/aggregate"
)

// Rules is the parsed rule set handed to the aggregation engine.
type Rules struct {
	Groups        []aggregate.Group
	GlobalFilters []string
}

// Load parses the rule file at path. A missing file is a configuration
// error; an empty file yields empty rules (valid: nothing will match).
func Load(path string) (Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return Rules{}, fmt.Errorf("keyword rules %s: %w (create the file or point keywords.file at an existing one)", path, err)
	}
	defer f.Close()

	var rules Rules
	var terms, filters []string

	flush := func() {
		if len(terms) == 0 && len(filters) == 0 {
			return
		}
		if len(terms) == 0 {
			// Filter-only group: these words are excluded everywhere.
			rules.GlobalFilters = append(rules.GlobalFilters, filters...)
		} else {
			rules.Groups = append(rules.Groups, aggregate.Group{
				Name:    strings.Join(terms, " "),
				Terms:   terms,
				Filters: filters,
			})
		}
		terms, filters = nil, nil
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "!"):
			if word := strings.TrimSpace(line[1:]); word != "" {
				filters = append(filters, word)
			}
		default:
			terms = append(terms, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return Rules{}, fmt.Errorf("read keyword rules %s: %w", path, err)
	}
	flush()

	return rules, nil
}
