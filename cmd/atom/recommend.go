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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/your-org/atom-onboarding/internal/flow"
	"github.com/your-org/atom-onboarding/internal/keywords"
	"github.com/your-org/atom-onboarding/internal/llm"
	"github.com/your-org/atom-onboarding/internal/recommend"
	"go.uber.org/zap"
)

// profileFlags are the answers a one-shot recommendation run is built from
type profileFlags struct {
	product         string
	market          string
	differentiation string
	size            string
	zip             string
	linkedin        bool
	count           int
}

func newRecommendCmd(opts *rootOptions) *cobra.Command {
	flags := &profileFlags{}

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Print recommendations for a profile as JSON",
		Example: `  atom recommend --product "B2B analytics tool" --market retail --size mid-market --zip 94103
  atom recommend --product "AI sales assistant" --count 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.product == "" {
				return fmt.Errorf("--product is required")
			}

			a, err := newApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer a.close()

			count := flags.count
			if count <= 0 {
				count = a.cfg.Recommendations.DefaultCount
			}
			if maxCount := a.cfg.Recommendations.MaxCount; maxCount > 0 && count > maxCount {
				count = maxCount
			}

			result := runRecommend(cmd.Context(), a.gateway, a.cfg.LLM.KeywordTimeout, []recommend.EngineOption{
				recommend.WithTimeout(a.cfg.LLM.RecommendationTimeout),
				recommend.WithDetailedModel(a.cfg.LLM.DetailedModel),
			}, flags, count, a.logger)
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&flags.product, "product", "", "Product or service you sell")
	cmd.Flags().StringVar(&flags.market, "market", "", "Target market or industry")
	cmd.Flags().StringVar(&flags.differentiation, "differentiation", "", "What makes the product unique")
	cmd.Flags().StringVar(&flags.size, "size", "", "Target company size")
	cmd.Flags().StringVar(&flags.zip, "zip", "", "Zip code for local events")
	cmd.Flags().BoolVar(&flags.linkedin, "linkedin", false, "Allow LinkedIn-based recommendations")
	cmd.Flags().IntVar(&flags.count, "count", 0, "Number of companies to recommend")
	return cmd
}

// runRecommend feeds the flags through a fresh state machine in flow order
// and generates recommendations from it
func runRecommend(ctx context.Context, gateway llm.Generator, keywordTimeout time.Duration, engineOpts []recommend.EngineOption, flags *profileFlags, count int, logger *zap.Logger) *recommend.Result {
	machine := flow.NewMachine(keywords.NewSynthesizer(gateway, keywordTimeout, logger), logger)

	linkedin := "no"
	if flags.linkedin {
		linkedin = "yes"
	}
	answers := []struct {
		step   flow.Step
		answer string
	}{
		{flow.StepProduct, flags.product},
		{flow.StepMarket, flags.market},
		{flow.StepDifferentiation, flags.differentiation},
		{flow.StepCompanySize, flags.size},
		{flow.StepLinkedIn, linkedin},
		{flow.StepLocation, flags.zip},
	}
	for _, a := range answers {
		if a.answer == "" {
			continue
		}
		machine.StoreAnswer(ctx, a.step, a.answer)
	}

	return recommend.NewEngine(machine, gateway, logger, engineOpts...).Generate(ctx, count)
}

func writeJSON(out io.Writer, v interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
