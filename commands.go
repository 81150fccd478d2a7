package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/open-sauced/benchtrend/pkg/common"
	"github.com/open-sauced/benchtrend/pkg/database"
	"github.com/open-sauced/benchtrend/pkg/github"
	"github.com/open-sauced/benchtrend/pkg/history"
	"github.com/open-sauced/benchtrend/pkg/insights"
	"github.com/open-sauced/benchtrend/pkg/metrics"
	"github.com/open-sauced/benchtrend/pkg/providers"
	"github.com/open-sauced/benchtrend/pkg/render"
	"github.com/open-sauced/benchtrend/pkg/server"
	"github.com/open-sauced/benchtrend/pkg/trends"
)

// feedFlags locate the feed of the offline commands: either a local file
// argument or a repository fetched into memory.
type feedFlags struct {
	repo   string
	branch string
	path   string
}

func (f *feedFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.repo, "repo", "", "git repository to read the feed from instead of a local file")
	cmd.Flags().StringVar(&f.branch, "branch", providers.DefaultBranch, "branch holding the feed")
	cmd.Flags().StringVar(&f.path, "path", providers.DefaultPath, "path of the feed within the branch")
}

func (f *feedFlags) load(ctx context.Context, args []string) (*history.Store, error) {
	var feeds providers.FeedProvider
	var src providers.FeedSource

	switch {
	case f.repo != "":
		feeds = providers.NewGitFeedProvider(providers.NewInMemoryGitRepoProvider(sugarLogger), sugarLogger)
		src = providers.FeedSource{RepoURL: f.repo, Branch: f.branch, Path: f.path}
	case len(args) == 1:
		feeds = providers.FileFeedProvider{}
		src = providers.FeedSource{Path: args[0]}
	default:
		return nil, fmt.Errorf("expected a feed file argument or --repo")
	}

	raw, err := feeds.FetchFeed(ctx, src)
	if err != nil {
		return nil, err
	}

	store, warnings, err := history.Load(raw)
	if err != nil {
		return nil, err
	}

	for _, w := range warnings {
		sugarLogger.Warnf("Skipped malformed benchmark data: %s", w)
	}

	return store, nil
}

var (
	trendsFeed   feedFlags
	trendsSeries string
	trendsDedupe string
)

var trendsCmd = &cobra.Command{
	Use:   "trends [data.js]",
	Short: "Print the per-metric trends of a feed as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := trendsFeed.load(cmd.Context(), args)
		if err != nil {
			return err
		}

		series, err := selectTrends(store, trendsSeries, trendsDedupe)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(series)
	},
}

var (
	renderFeed   feedFlags
	renderSeries string
	renderDedupe string
	renderOutput string
	renderTitle  string
)

var renderCmd = &cobra.Command{
	Use:   "render [data.js]",
	Short: "Render the trends of a feed as an HTML page of line charts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := renderFeed.load(cmd.Context(), args)
		if err != nil {
			return err
		}

		series, err := selectTrends(store, renderSeries, renderDedupe)
		if err != nil {
			return err
		}

		title := renderTitle
		if title == "" {
			title = store.RepoURL()
		}

		var w io.Writer = cmd.OutOrStdout()
		if renderOutput != "" {
			f, err := os.Create(renderOutput)
			if err != nil {
				return fmt.Errorf("could not create %s: %w", renderOutput, err)
			}
			defer f.Close()
			w = f
		}

		return render.Page(w, title, series)
	},
}

var (
	compareFeed         feedFlags
	compareSeries       string
	compareFailOnRegres bool
)

var compareCmd = &cobra.Command{
	Use:   "compare [data.js]",
	Short: "Compare the two latest commits of every metric",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := compareFeed.load(cmd.Context(), args)
		if err != nil {
			return err
		}

		series, err := selectTrends(store, compareSeries, "")
		if err != nil {
			return err
		}

		regressions := writeInsights(cmd.OutOrStdout(), series, cfg.InsightOptions())
		if compareFailOnRegres && regressions > 0 {
			return fmt.Errorf("%d regressions found", regressions)
		}

		return nil
	},
}

var normalizeFeed feedFlags

var normalizeCmd = &cobra.Command{
	Use:   "normalize [data.js]",
	Short: "Rewrite a feed without its malformed records",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := normalizeFeed.load(cmd.Context(), args)
		if err != nil {
			return err
		}

		return store.WriteDataJS(cmd.OutOrStdout())
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover <org>",
	Short: "List the repositories of a GitHub organization that publish a benchmark feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newGithubClient()

		repos, err := client.ListReposByOrg(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("could not list repositories of %s: %w", args[0], err)
		}

		for _, url := range github.GetRepoHTMLUrls(github.FilterArchivedRepos(repos)) {
			ok, err := common.RemoteHasBranch(url, providers.DefaultBranch)
			if err != nil {
				sugarLogger.Debugf("Could not list remote %s: %v", url, err)
				continue
			}

			if ok {
				fmt.Fprintln(cmd.OutOrStdout(), url)
			}
		}

		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve trends, insights and charts over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Env vars for the benchtrend server
		serverPort := os.Getenv("SERVER_PORT")
		if serverPort == "" {
			serverPort = "8080"
		}

		// User specify which git provider to use
		gitProvider := os.Getenv("GIT_PROVIDER")

		dbHandler, err := openDatabase()
		if err != nil {
			return err
		}
		if dbHandler != nil {
			defer dbHandler.Close()
		}

		var feeds providers.FeedProvider
		githubOnly := false

		switch gitProvider {
		case "cache":
			sugarLogger.Infof("Initiating cache git provider")

			// Env vars for the git provider
			cacheDir := os.Getenv("CACHE_DIR")
			minFreeDisk := os.Getenv("MIN_FREE_DISK_GB")

			// Validates the provided minimum free disk int is parsable as a uint64
			minFreeDiskUint64, err := strconv.ParseUint(minFreeDisk, 10, 64)
			if err != nil {
				return fmt.Errorf("could not parse MIN_FREE_DISK_GB: %w", err)
			}

			repos, err := providers.NewLRUCacheGitRepoProvider(cacheDir, minFreeDiskUint64, sugarLogger, cfg.NeverEvict())
			if err != nil {
				return fmt.Errorf("could not create a cache git provider: %w", err)
			}
			feeds = providers.NewGitFeedProvider(repos, sugarLogger)
		case "memory":
			sugarLogger.Infof("Initiating in-memory git provider")
			feeds = providers.NewGitFeedProvider(providers.NewInMemoryGitRepoProvider(sugarLogger), sugarLogger)
		case "github":
			sugarLogger.Infof("Initiating GitHub API feed provider")
			feeds = providers.NewGitHubFeedProvider(newGithubClient(), sugarLogger)
			githubOnly = true
		default:
			return fmt.Errorf("must specify the GIT_PROVIDER env variable (i.e. cache, memory, github)")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		benchServer := server.NewBenchTrendServer(dbHandler, feeds, metrics.New(), sugarLogger)
		benchServer.Insights = cfg.InsightOptions()
		benchServer.GitHubOnly = githubOnly

		if len(cfg.Feeds) > 0 {
			go benchServer.RefreshAll(ctx, cfg.Feeds)
		}

		return benchServer.Run(ctx, serverPort)
	},
}

func init() {
	trendsFeed.register(trendsCmd)
	trendsCmd.Flags().StringVar(&trendsSeries, "series", "", "only this benchmark series")
	trendsCmd.Flags().StringVar(&trendsDedupe, "dedupe", "", "keep one point per commit: latest or earliest")

	renderFeed.register(renderCmd)
	renderCmd.Flags().StringVar(&renderSeries, "series", "", "only this benchmark series")
	renderCmd.Flags().StringVar(&renderDedupe, "dedupe", "", "keep one point per commit: latest or earliest")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "write the page to this file instead of stdout")
	renderCmd.Flags().StringVar(&renderTitle, "title", "", "page title, the feed's repository URL by default")

	compareFeed.register(compareCmd)
	compareCmd.Flags().StringVar(&compareSeries, "series", "", "only this benchmark series")
	compareCmd.Flags().BoolVar(&compareFailOnRegres, "fail-on-regression", false, "exit non-zero when a regression is found")

	normalizeFeed.register(normalizeCmd)
}

// openDatabase connects to the database named by the DATABASE_* env vars.
// Without DATABASE_DRIVER and DATABASE_HOST the server runs without one.
func openDatabase() (*database.BenchDbHandler, error) {
	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" && os.Getenv("DATABASE_HOST") == "" {
		sugarLogger.Infof("No database configured, refreshed history will not be persisted")
		return nil, nil
	}

	dbHandler, err := database.NewBenchDbHandler(database.Config{
		Driver:   driver,
		Host:     os.Getenv("DATABASE_HOST"),
		Port:     os.Getenv("DATABASE_PORT"),
		User:     os.Getenv("DATABASE_USER"),
		Password: os.Getenv("DATABASE_PASSWORD"),
		DBName:   os.Getenv("DATABASE_DBNAME"),
		SSLMode:  os.Getenv("DATABASE_SSLMODE"),
		Path:     os.Getenv("DATABASE_PATH"),
	})
	if err != nil {
		return nil, err
	}

	if err := dbHandler.EnsureSchema(); err != nil {
		dbHandler.Close()
		return nil, err
	}

	return dbHandler, nil
}

func newGithubClient() *github.GithubClient {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return github.NewTokenClient(token)
	}
	return github.NewClient(nil)
}

// selectTrends extracts every series, or only the named one, and applies the
// dedupe policy when one is given.
func selectTrends(store *history.Store, series string, dedupe string) (map[string]trends.Trends, error) {
	all := trends.ExtractAll(store)

	if series != "" {
		tr, ok := all[series]
		if !ok {
			return nil, fmt.Errorf("unknown series: %s", series)
		}
		all = map[string]trends.Trends{series: tr}
	}

	if dedupe != "" {
		policy, err := trends.ParsePolicy(dedupe)
		if err != nil {
			return nil, err
		}

		for name, tr := range all {
			all[name] = tr.DedupeByCommit(policy)
		}
	}

	return all, nil
}

// writeInsights prints one row per compared metric and returns the number of
// regressions.
func writeInsights(w io.Writer, series map[string]trends.Trends, opts insights.Options) int {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIES\tMETRIC\tBASE\tHEAD\tDELTA\tP\tREGRESSION")

	regressions := 0
	for _, name := range sortedKeys(series) {
		for _, in := range insights.CompareAll(series[name], opts) {
			flag := ""
			if in.Regression {
				flag = "yes"
				regressions++
			}

			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.3f\t%s\n",
				name, in.Metric, render.ShortCommit(in.BaseCommit), render.ShortCommit(in.HeadCommit), in.Delta, in.P, flag)
		}
	}

	//nolint:errcheck
	tw.Flush()

	return regressions
}

func sortedKeys(series map[string]trends.Trends) []string {
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
