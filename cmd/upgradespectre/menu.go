package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type menuAction struct {
	key   string
	label string
	run   func(ctx context.Context, out io.Writer) error
}

func menuActions(opts *passOptions) []menuAction {
	return []menuAction{
		{key: "1", label: "Generate V2 report", run: func(ctx context.Context, out io.Writer) error {
			return runReport(ctx, opts, out)
		}},
		{key: "2", label: "Generate V3 reconciliation", run: func(ctx context.Context, out io.Writer) error {
			return runReconcile(ctx, opts, out)
		}},
		{key: "3", label: "Compute variation", run: func(ctx context.Context, out io.Writer) error {
			return runVariation(opts, out)
		}},
	}
}

// runMenu prompts for passes until the operator exits or input ends.
// A failed pass is reported and the menu continues.
func runMenu(ctx context.Context, in io.Reader, out io.Writer, actions []menuAction) error {
	if ctx == nil {
		ctx = context.Background()
	}
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprintln(out)
		for _, a := range actions {
			fmt.Fprintf(out, "%s. %s\n", a.key, a.label)
		}
		fmt.Fprintln(out, "0. Exit")
		fmt.Fprint(out, "Select an option: ")

		choice, ok := readLine(scanner)
		if !ok || choice == "0" {
			return nil
		}

		action, found := findAction(actions, choice)
		if !found {
			fmt.Fprintf(out, "Invalid option %q\n", choice)
			continue
		}

		if err := action.run(ctx, out); err != nil {
			slog.Error("pass failed", slog.String("pass", action.label), slog.String("error", err.Error()))
			fmt.Fprintf(out, "%s failed: %v\n", action.label, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fmt.Fprint(out, "Do you want to continue? (y/n): ")
		answer, ok := readLine(scanner)
		if !ok {
			return nil
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
		default:
			return nil
		}
	}
}

func readLine(scanner *bufio.Scanner) (string, bool) {
	if !scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(scanner.Text()), true
}

func findAction(actions []menuAction, key string) (menuAction, bool) {
	for _, a := range actions {
		if a.key == key {
			return a, true
		}
	}
	return menuAction{}, false
}
