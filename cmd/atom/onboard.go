// Copyright 2024 Atom Onboarding Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/your-org/atom-onboarding/internal/onboarding"
	"github.com/your-org/atom-onboarding/internal/recommend"
)

func newOnboardCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Walk through onboarding in the terminal",
		Long: `Ask every onboarding question on stdout, read each answer from stdin
and print the keywords and recommended companies at the end.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer a.close()

			return runOnboarding(cmd.Context(), a.service, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// runOnboarding drives one session from the first question to completion
func runOnboarding(ctx context.Context, service *onboarding.Service, in io.Reader, out io.Writer) error {
	turn, err := service.CreateSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.EndSession(ctx, turn.SessionID) }()

	reader := bufio.NewReader(in)
	for !turn.Completed {
		fmt.Fprintf(out, "\nAtom: %s\n> ", turn.Question)

		answer, err := reader.ReadString('\n')
		switch {
		case errors.Is(err, io.EOF) && answer == "":
			return fmt.Errorf("onboarding ended before the %s step was answered", turn.Step)
		case err != nil && !errors.Is(err, io.EOF):
			return fmt.Errorf("failed to read answer: %w", err)
		}

		turn, err = service.StoreAnswer(ctx, turn.SessionID, string(turn.Step), strings.TrimSpace(answer))
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "\nAtom: %s\n", turn.Question)
	fmt.Fprintf(out, "\nKeywords: %s\n", strings.Join(turn.Keywords, ", "))
	printRecommendations(out, turn.Recommendations)
	if turn.SuggestedMessage != "" {
		fmt.Fprintf(out, "\nSuggested opener: %s\n", turn.SuggestedMessage)
	}
	return nil
}

func printRecommendations(out io.Writer, result *recommend.Result) {
	if result == nil {
		return
	}
	if result.Source == recommend.SourceMock {
		fmt.Fprintf(out, "\nShowing sample companies (%s)\n", result.FallbackReason)
	}
	for i, r := range result.Recommendations {
		fmt.Fprintf(out, "\n%d. %s", i+1, r.Name)
		if r.Website != "" {
			fmt.Fprintf(out, " (%s)", r.Website)
		}
		fmt.Fprintln(out)
		if r.Industry != "" {
			fmt.Fprintf(out, "   Industry: %s\n", r.Industry)
		}
		if r.Description != "" {
			fmt.Fprintf(out, "   %s\n", r.Description)
		}
		if r.Ranking != nil {
			fmt.Fprintf(out, "   Score: %.2f\n", r.Ranking.FinalScore)
		}
	}
}
