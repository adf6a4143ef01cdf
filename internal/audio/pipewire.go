package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// PipeWire lists and validates ports through pw-link
type PipeWire struct {
	command string
}

func NewPipeWire() *PipeWire {
	return &PipeWire{command: "pw-link"}
}

// ListPorts returns all input and output ports
func (pw *PipeWire) ListPorts(ctx context.Context) ([]string, error) {
	return pw.run(ctx, "-io")
}

// ListSources returns output ports, which are the ones a capture can read from
func (pw *PipeWire) ListSources(ctx context.Context) ([]string, error) {
	return pw.run(ctx, "-o")
}

func (pw *PipeWire) run(ctx context.Context, flag string) ([]string, error) {
	output, err := exec.CommandContext(ctx, pw.command, flag).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list PipeWire ports: %w", err)
	}
	return parsePorts(string(output)), nil
}

func parsePorts(output string) []string {
	var ports []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Input ports:") || strings.HasPrefix(line, "Output ports:") {
			continue
		}
		// Links are listed indented under their port with an arrow
		if strings.HasPrefix(line, "|->") || strings.HasPrefix(line, "|<-") {
			continue
		}
		ports = append(ports, line)
	}
	return ports
}

// ValidatePort checks that a port or node exists and is not ambiguous
func (pw *PipeWire) ValidatePort(ctx context.Context, portName string) error {
	if portName == "" {
		return nil
	}

	ports, err := pw.ListPorts(ctx)
	if err != nil {
		slog.Debug("Failed to check port existence", "port", portName, "error", err)
		return err
	}
	return validatePortInList(portName, ports)
}

func validatePortInList(portName string, ports []string) error {
	if portName == "" {
		return nil
	}

	matches := findPortDuplicatesInList(portName, ports)
	if len(matches) == 0 && !strings.Contains(portName, ":") {
		// A bare node name targets all of the node's ports
		for _, port := range ports {
			if strings.HasPrefix(port, portName+":") {
				return nil
			}
		}
	}
	if len(matches) == 0 {
		return fmt.Errorf("port not found: %s", portName)
	}
	if len(matches) > 1 {
		return fmt.Errorf("duplicate sources detected for '%s': %v. Please close conflicting applications", portName, matches)
	}
	return nil
}

// findPortDuplicatesInList finds all ports with exactly the same name
func findPortDuplicatesInList(portName string, ports []string) []string {
	var duplicates []string
	for _, port := range ports {
		if port == portName {
			duplicates = append(duplicates, port)
		}
	}
	return duplicates
}
