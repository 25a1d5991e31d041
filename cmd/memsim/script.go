package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/memsim/vm"
)

// parseWords reads commands from command-line arguments, for example
// "allocate access 3 free". An access consumes the word that follows it.
func parseWords(words []string) ([]vm.Command, error) {
	var commands []vm.Command

	for i := 0; i < len(words); i++ {
		text := words[i]

		if strings.EqualFold(text, "access") && i+1 < len(words) {
			i++
			text += " " + words[i]
		}

		cmd, err := vm.ParseCommand(text)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}

		commands = append(commands, cmd)
	}

	return commands, nil
}

// parseScript reads one command per line. Blank lines and lines starting
// with # are skipped.
func parseScript(r io.Reader) ([]vm.Command, error) {
	var commands []vm.Command

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cmd, err := vm.ParseCommand(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		commands = append(commands, cmd)
	}

	err := scanner.Err()
	if err != nil {
		return nil, err
	}

	return commands, nil
}
