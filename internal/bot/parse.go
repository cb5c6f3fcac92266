package bot

import (
	"fmt"
	"strconv"
	"strings"

	"secop_bot/internal/model"
)

// Filter flag names accepted by /newalert and /search.
var filterFlags = map[string]string{
	"-k":   "keyword",
	"-d":   "department",
	"-m":   "municipality",
	"-mod": "modality",
	"-t":   "contract_type",
	"-f":   "phase",
}

// ParseAlertArgs parses "/newalert <name> [-k ...] [-d ...] ..." into
// a display name and a filter set. Words before the first flag form
// the name; each flag collects the words up to the next flag.
func ParseAlertArgs(args string) (string, model.SearchFilters, error) {
	name, filters, err := parseNameAndFlags(args)
	if err != nil {
		return "", model.SearchFilters{}, err
	}
	if name == "" {
		return "", model.SearchFilters{}, fmt.Errorf("usage: /newalert <name> [-k keyword] [-d department] [-m municipality] [-mod modality] [-t contract type] [-f phase]")
	}
	if filters.IsEmpty() {
		return "", model.SearchFilters{}, fmt.Errorf("at least one filter is required, e.g. -k carreteras")
	}
	return name, filters, nil
}

// ParseSearchArgs parses "/search [-k ...] ..." into a filter set. A
// bare argument string with no flags is treated as the keyword.
func ParseSearchArgs(args string) (model.SearchFilters, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return model.SearchFilters{}, fmt.Errorf("usage: /search <keyword> or /search [-k keyword] [-d department] [-m municipality] [-mod modality] [-t contract type] [-f phase]")
	}
	if !strings.HasPrefix(args, "-") && !strings.Contains(args, " -") {
		return model.SearchFilters{Keyword: args}, nil
	}
	leading, filters, err := parseNameAndFlags(args)
	if err != nil {
		return model.SearchFilters{}, err
	}
	if leading != "" && filters.Keyword == "" {
		filters.Keyword = leading
	}
	if filters.IsEmpty() {
		return model.SearchFilters{}, fmt.Errorf("at least one filter is required")
	}
	return filters, nil
}

func parseNameAndFlags(args string) (string, model.SearchFilters, error) {
	var filters model.SearchFilters
	var leading []string
	current := ""
	values := map[string][]string{}

	for _, tok := range strings.Fields(args) {
		if strings.HasPrefix(tok, "-") {
			field, ok := filterFlags[tok]
			if !ok {
				return "", filters, fmt.Errorf("unknown flag %q", tok)
			}
			current = field
			continue
		}
		if current == "" {
			leading = append(leading, tok)
			continue
		}
		values[current] = append(values[current], tok)
	}

	for field, words := range values {
		v := strings.Join(words, " ")
		switch field {
		case "keyword":
			filters.Keyword = v
		case "department":
			filters.Department = v
		case "municipality":
			filters.Municipality = v
		case "modality":
			filters.Modality = v
		case "contract_type":
			filters.ContractType = v
		case "phase":
			filters.Phase = v
		}
	}

	return strings.Join(leading, " "), filters, nil
}

// ParseIDArg extracts an alert or process id from a command argument string.
func ParseIDArg(args string) (string, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return "", fmt.Errorf("id is required")
	}
	return strings.Fields(s)[0], nil
}

// ParseRenameArgs extracts an alert id and new name from command arguments.
func ParseRenameArgs(args string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(parts) < 2 {
		return "", "", fmt.Errorf("usage: /rename <id> <new_name>")
	}
	name := strings.TrimSpace(parts[1])
	if name == "" {
		return "", "", fmt.Errorf("new name cannot be empty")
	}
	return parts[0], name, nil
}

// ParseFreqArgs extracts an alert id and a check interval in hours.
func ParseFreqArgs(args string) (string, int, error) {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		return "", 0, fmt.Errorf("usage: /freq <id> <hours>")
	}
	hours, err := strconv.Atoi(parts[1])
	if err != nil || !model.ValidFrequency(hours) {
		return "", 0, fmt.Errorf("frequency must be one of %v hours", model.AllowedFrequencies)
	}
	return parts[0], hours, nil
}
