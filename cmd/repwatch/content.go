package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/repwatch/internal/actions"
	"github.com/TobiSchelling/repwatch/internal/analytics"
	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
	"github.com/TobiSchelling/repwatch/internal/flows"
	"github.com/TobiSchelling/repwatch/internal/legal"
	"github.com/TobiSchelling/repwatch/internal/mention"
)

// withApp opens the app for the duration of fn.
func withApp(fn func(ctx context.Context, a *app) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()
	return fn(ctx, a)
}

// --- categories ---

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Manage encyclopedia categories",
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(_ context.Context, a *app) error {
			for _, c := range a.store.Categories() {
				flags := ""
				if c.Verified {
					flags += " [verified]"
				}
				if c.Disputed {
					flags += " [disputed]"
				}
				fmt.Printf("  %-28s %s (%d links)%s\n", c.ID, c.Title, len(c.Links), flags)
			}
			return nil
		})
	},
}

var categoryDescription string

var categoriesAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(_ context.Context, a *app) error {
			c, err := a.svc.AddCategory(encyclopedia.NewCategory{Title: args[0], Description: categoryDescription})
			if err != nil {
				return err
			}
			fmt.Printf("Added category %s: %s\n", c.ID, c.Title)
			return nil
		})
	},
}

var flagOff bool

func categoryFlagCmd(use, short string, patch func(on bool) encyclopedia.CategoryPatch) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(_ context.Context, a *app) error {
				c, err := a.store.UpdateCategory(args[0], patch(!flagOff))
				if err != nil {
					return err
				}
				fmt.Printf("%s: verified=%v disputed=%v\n", c.Title, c.Verified, c.Disputed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&flagOff, "off", false, "Clear the flag instead of setting it")
	return cmd
}

func init() {
	categoriesAddCmd.Flags().StringVarP(&categoryDescription, "description", "d", "", "Category description")

	categoriesCmd.AddCommand(categoriesListCmd)
	categoriesCmd.AddCommand(categoriesAddCmd)
	categoriesCmd.AddCommand(categoryFlagCmd("verify", "Mark a category as verified", func(on bool) encyclopedia.CategoryPatch {
		return encyclopedia.CategoryPatch{Verified: &on}
	}))
	categoriesCmd.AddCommand(categoryFlagCmd("dispute", "Mark a category as disputed", func(on bool) encyclopedia.CategoryPatch {
		return encyclopedia.CategoryPatch{Disputed: &on}
	}))
}

// --- links ---

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Manage encyclopedia links",
}

var (
	linkTitle    string
	linkExcerpt  string
	linkPlatform string
)

var linksAddCmd = &cobra.Command{
	Use:   "add [category-id] [url]",
	Short: "Add a link to a category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(_ context.Context, a *app) error {
			l, err := a.svc.AddLink(args[0], encyclopedia.NewLink{
				Title:         linkTitle,
				URL:           args[1],
				Excerpt:       linkExcerpt,
				PlatformLabel: linkPlatform,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Added link %s to %s\n", l.ID, args[0])
			return nil
		})
	},
}

var linksUniqueCmd = &cobra.Command{
	Use:   "unique",
	Short: "List every distinct URL in the encyclopedia",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(_ context.Context, a *app) error {
			for _, l := range encyclopedia.UniqueLinks(a.store.Categories()) {
				fmt.Printf("  %s\n    %s\n", l.DisplayTitle(), l.URL)
			}
			return nil
		})
	},
}

var linksSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search categories and links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(_ context.Context, a *app) error {
			cats := encyclopedia.Filter(a.store.Categories(), args[0])
			if len(cats) == 0 {
				fmt.Printf("Nothing matches %q.\n", args[0])
				return nil
			}
			for _, c := range cats {
				fmt.Printf("%s (%s)\n", c.Title, c.ID)
				for _, l := range c.Links {
					fmt.Printf("  [%s] %s\n        %s\n", l.ID, l.Title, l.URL)
				}
			}
			return nil
		})
	},
}

func init() {
	linksAddCmd.Flags().StringVarP(&linkTitle, "title", "t", "", "Link title")
	linksAddCmd.Flags().StringVar(&linkExcerpt, "excerpt", "", "Short excerpt")
	linksAddCmd.Flags().StringVar(&linkPlatform, "platform", "", "Platform label")

	linksCmd.AddCommand(linksAddCmd)
	linksCmd.AddCommand(linksUniqueCmd)
	linksCmd.AddCommand(linksSearchCmd)
}

// --- mentions ---

var mentionsCmd = &cobra.Command{
	Use:   "mentions",
	Short: "Review and analyze mentions",
}

var mentionRisk string

var mentionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mentions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(_ context.Context, a *app) error {
			ms := mention.Project(a.store.Categories(), cfg.Categories.Mentions, time.Now())
			shown := 0
			for _, m := range ms {
				if mentionRisk != "" && !strings.EqualFold(string(m.RiskColor), mentionRisk) {
					continue
				}
				risk := string(m.RiskColor)
				if risk == "" {
					risk = "-"
				}
				fmt.Printf("  %-7s %s  %s/%s\n", risk, m.Timestamp.Local().Format("2006-01-02"), m.OriginalCategoryID, m.OriginalLinkID)
				fmt.Printf("          %s (%s)\n", m.Title, m.PlatformLabel)
				shown++
			}
			if shown == 0 {
				fmt.Println("No mentions.")
			}
			return nil
		})
	},
}

func refArgs(args []string) encyclopedia.Ref {
	return encyclopedia.Ref{CategoryID: args[0], LinkID: args[1]}
}

var mentionsAnalyzeCmd = &cobra.Command{
	Use:   "analyze [category-id] [link-id]",
	Short: "Assess the reputational risk of a mention",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			res, applied, err := a.svc.AnalyzeMentionRisk(ctx, refArgs(args))
			if err != nil {
				return err
			}
			fmt.Printf("Risk: %s  Sentiment: %s\n%s\n", res.Color(), res.SentimentValue(), res.Analysis)
			if !applied {
				fmt.Println("(the link was removed meanwhile; nothing saved)")
			}
			return nil
		})
	},
}

var mentionsSummarizeCmd = &cobra.Command{
	Use:   "summarize [category-id] [link-id]",
	Short: "Replace a mention's excerpt with an AI summary",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			res, applied, err := a.svc.SummarizeMention(ctx, refArgs(args))
			if err != nil {
				return err
			}
			fmt.Println(res.Summary)
			if !applied {
				fmt.Println("(the link was removed meanwhile; nothing saved)")
			}
			return nil
		})
	},
}

func init() {
	mentionsListCmd.Flags().StringVar(&mentionRisk, "risk", "", "Only show mentions with this risk color")

	mentionsCmd.AddCommand(mentionsListCmd)
	mentionsCmd.AddCommand(mentionsAnalyzeCmd)
	mentionsCmd.AddCommand(mentionsSummarizeCmd)
}

// --- cases ---

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "Review legal filings",
}

var casesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List legal cases, most recently filed first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(_ context.Context, a *app) error {
			cases := legal.Project(a.store.Categories(), cfg.Categories.Legal, time.Now())
			if len(cases) == 0 {
				fmt.Println("No legal cases.")
				return nil
			}
			for _, c := range cases {
				fmt.Printf("  [%s] %s  %s  %s\n", c.ID, c.CaseID, c.Status, c.Court)
				fmt.Printf("        filed %s, removal %s, %d letter(s)\n",
					c.FilingDate.Local().Format("2006-01-02"), c.RemovalStatus, len(c.GeneratedLetters))
			}
			return nil
		})
	},
}

var dmcaReq actions.DMCARequest

var casesDMCACmd = &cobra.Command{
	Use:   "dmca [link-id]",
	Short: "Draft a DMCA takedown notice and attach it to a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			ref := encyclopedia.Ref{CategoryID: cfg.Categories.Legal, LinkID: args[0]}
			out, err := a.svc.GenerateDMCA(ctx, ref, dmcaReq)
			if err != nil {
				return err
			}
			fmt.Println(out.Letter)
			if out.Applied {
				fmt.Printf("\nSaved as %s.\n", out.Key)
			}
			return nil
		})
	},
}

func init() {
	casesDMCACmd.Flags().StringVar(&dmcaReq.MentionTitle, "title", "", "Title of the infringing content")
	casesDMCACmd.Flags().StringVar(&dmcaReq.MentionURL, "url", "", "URL of the infringing content")
	casesDMCACmd.Flags().StringVar(&dmcaReq.OriginalWorkDescription, "work", "", "Description of the original work")

	casesCmd.AddCommand(casesListCmd)
	casesCmd.AddCommand(casesDMCACmd)
}

// --- analytics ---

var analyticsWeekly bool

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show mention volume over time",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(_ context.Context, a *app) error {
			period := analytics.Monthly
			if analyticsWeekly {
				period = analytics.Weekly
			}
			links := analytics.CollectLinks(a.store.Categories(), cfg.Categories.Analytics)
			for _, b := range analytics.Aggregate(links, period, time.Now()) {
				fmt.Printf("  %-10s %3d %s\n", b.Label, b.Count, strings.Repeat("#", b.Count))
			}
			return nil
		})
	},
}

func init() {
	analyticsCmd.Flags().BoolVar(&analyticsWeekly, "weekly", false, "Bucket by week instead of month")
}

// --- scrape ---

var (
	scrapeSelector string
	scrapeAddTo    string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [url]",
	Short: "Fetch a page and extract its title and summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			res, err := a.svc.Scrape(ctx, args[0], scrapeSelector)
			if err != nil {
				return err
			}
			fmt.Printf("Title:    %s\nPlatform: %s\n\n%s\n", res.Title, res.Platform, res.Summary)

			if scrapeAddTo != "" {
				l, err := a.svc.AddScrapedLink(scrapeAddTo, res)
				if err != nil {
					return err
				}
				fmt.Printf("\nAdded link %s to %s\n", l.ID, scrapeAddTo)
			}
			return nil
		})
	},
}

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeSelector, "selector", "s", "", "CSS selector to extract instead of the whole page")
	scrapeCmd.Flags().StringVar(&scrapeAddTo, "add-to", "", "Category id to save the result into")
}

// --- generate ---

var (
	generateType     string
	generateCategory string
)

var generateCmd = &cobra.Command{
	Use:   "generate [link-id]",
	Short: "Write social or PR copy about a news link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			category := generateCategory
			if category == "" {
				category = cfg.Categories.News
			}
			res, err := a.svc.GenerateContent(ctx, encyclopedia.Ref{CategoryID: category, LinkID: args[0]}, generateType)
			if err != nil {
				return err
			}
			fmt.Println(res.GeneratedText)
			return nil
		})
	},
}

func init() {
	types := make([]string, 0, len(flows.ContentTypes()))
	for _, t := range flows.ContentTypes() {
		types = append(types, string(t))
	}
	generateCmd.Flags().StringVarP(&generateType, "type", "t", string(flows.ContentSummary), "Content type: "+strings.Join(types, ", "))
	generateCmd.Flags().StringVar(&generateCategory, "category", "", "Category id (defaults to the news category)")
}
