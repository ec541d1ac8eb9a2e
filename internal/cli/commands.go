package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ErrNotLoggedIn is returned by commands that need a saved session
var ErrNotLoggedIn = errors.New("not logged in: run 'projecty login' first")

type app struct {
	configPath string
	apiURL     string
	outputFmt  string
	verbose    bool

	cfg     *Config
	log     *log.Logger
	closer  io.Closer
	client  *Client
	printer *Printer
	creds   *Credentials
	in      io.Reader
	now     func() time.Time
}

// NewRootCommand builds the projecty command tree writing to out
func NewRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{in: in, now: time.Now}

	root := &cobra.Command{
		Use:           "projecty",
		Short:         "Project-Y CLI",
		Long:          "projecty is a terminal client for the Project-Y social API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(out)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.closer != nil {
				_ = a.closer.Close()
			}
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.config/projecty/cli/config.toml)")
	flags.StringVar(&a.apiURL, "api", "", "API base URL")
	flags.StringVarP(&a.outputFmt, "output", "o", "", "output format: text or json")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.feedCmd(),
		a.postCmd(),
		a.likeCmd(),
		a.notificationsCmd(),
		a.searchCmd(),
	)
	return root
}

// Execute runs the CLI against stdin and stdout
func Execute() {
	root := NewRootCommand(os.Stdin, os.Stdout)
	if err := root.Execute(); err != nil {
		failure.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) setup(out io.Writer) error {
	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.apiURL != "" {
		cfg.Override("api.base_url", a.apiURL)
	}
	if a.outputFmt != "" {
		cfg.Override("output.format", a.outputFmt)
	}
	a.cfg = cfg

	a.log, a.closer = NewLogger(cfg.LogFile(), a.verbose)
	a.client = NewClient(cfg.BaseURL(), cfg.Timeout(), a.log)
	a.printer = NewPrinter(out, cfg.OutputFormat())

	creds, err := LoadCredentials(cfg.CredentialsPath())
	if err != nil {
		a.log.Warn("Ignoring unreadable credentials", "err", err)
	}
	if creds.Valid(a.now()) {
		a.creds = creds
		a.client.SetToken(creds.Token)
	}
	return nil
}

func (a *app) requireLogin() error {
	if a.creds == nil {
		return ErrNotLoggedIn
	}
	return nil
}

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				password = os.Getenv("PROJECTY_PASSWORD")
			}
			if password == "" {
				p, err := a.readPassword()
				if err != nil {
					return err
				}
				password = p
			}

			resp, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			creds := &Credentials{
				Token:     resp.Token,
				ExpiresAt: resp.ExpiresAt,
				UserID:    resp.User.ID,
				Username:  resp.User.Username,
			}
			if err := SaveCredentials(a.cfg.CredentialsPath(), creds); err != nil {
				return fmt.Errorf("save credentials: %w", err)
			}
			a.log.Info("Logged in", "username", creds.Username)

			a.printer.Success("Logged in as @%s", creds.Username)
			if !resp.HasCompletedOnboarding {
				a.printer.Info("Pick your interests to personalize your feed.")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (or PROJECTY_PASSWORD)")
	return cmd
}

// readPassword prompts without echo on a terminal, otherwise reads a line
func (a *app) readPassword() (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(*cobra.Command, []string) error {
			if err := DeleteCredentials(a.cfg.CredentialsPath()); err != nil {
				return err
			}
			a.printer.Success("Logged out")
			return nil
		},
	}
}

func (a *app) feedCmd() *cobra.Command {
	var cursor string
	var limit int
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show your feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			page, err := a.client.Feed(cmd.Context(), cursor, limit)
			if err != nil {
				return err
			}
			return a.printer.Feed(page)
		},
	}
	cmd.Flags().StringVar(&cursor, "cursor", "", "continue from a previous page")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "posts per page")
	return cmd
}

func (a *app) postCmd() *cobra.Command {
	var image, repost string
	cmd := &cobra.Command{
		Use:   "post [text]",
		Short: "Publish a post, optionally with an image or as a repost",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			p := NewPost{ImagePath: image, OriginalPostID: repost}
			if len(args) == 1 {
				p.Content = args[0]
			}
			if p.Content == "" && p.ImagePath == "" && p.OriginalPostID == "" {
				return errors.New("nothing to post: give text, --image or --repost")
			}

			res, err := a.client.CreatePost(cmd.Context(), p)
			if err != nil {
				return err
			}
			if a.printer.json {
				return a.printer.JSON(res)
			}
			if res.IsRepost {
				a.printer.Success("Reposted (%s)", res.PostID)
			} else {
				a.printer.Success("Posted (%s)", res.PostID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "path to a jpg, png, gif or webp")
	cmd.Flags().StringVar(&repost, "repost", "", "id of the post to repost or quote")
	return cmd
}

func (a *app) likeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <postId>",
		Short: "Like or unlike a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			res, err := a.client.ToggleLike(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.printer.json {
				return a.printer.JSON(res)
			}
			if res.Liked {
				a.printer.Success("♥ Liked (%d)", res.LikeCount)
			} else {
				a.printer.Info("Unliked (%d)", res.LikeCount)
			}
			return nil
		},
	}
}

func (a *app) notificationsCmd() *cobra.Command {
	var markRead bool
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notifs"},
		Short:   "List recent notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			items, err := a.client.Notifications(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.printer.Notifications(items); err != nil {
				return err
			}
			if markRead {
				n, err := a.client.MarkNotificationsRead(cmd.Context())
				if err != nil {
					return err
				}
				a.log.Debug("Marked notifications read", "count", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&markRead, "mark-read", false, "mark everything read afterwards")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var users bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search posts, or users with --users",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			q := strings.Join(args, " ")
			if users {
				hits, err := a.client.SearchUsers(cmd.Context(), q)
				if err != nil {
					return err
				}
				return a.printer.Users(hits)
			}
			posts, err := a.client.SearchPosts(cmd.Context(), q)
			if err != nil {
				return err
			}
			return a.printer.Posts(posts)
		},
	}
	cmd.Flags().BoolVarP(&users, "users", "u", false, "search users instead of posts")
	return cmd
}

