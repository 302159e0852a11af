// Package text formats the help text of faucetctl commands.
package text

import (
	"strings"
)

// Indentation prefixes every example line.
const Indentation = `  `

// LongDesc trims s and removes the indentation shared by its lines, so descriptions can be
// written as indented raw strings.
func LongDesc(s string) string {
	return strings.Join(dedent(s), "\n")
}

// Examples dedents s and indents every line by Indentation.
func Examples(s string) string {
	lines := dedent(s)
	for i, line := range lines {
		if line != "" {
			lines[i] = Indentation + line
		}
	}

	return strings.Join(lines, "\n")
}

func dedent(s string) []string {
	lines := strings.Split(s, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil
	}

	prefix := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if prefix < 0 || n < prefix {
			prefix = n
		}
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.TrimRight(line[prefix:], " \t")
	}

	return lines
}
