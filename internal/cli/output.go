package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
)

var (
	bold    = color.New(color.Bold)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
	info    = color.New(color.FgCyan)
	faint   = color.New(color.Faint)
)

// Printer renders results as colored text or JSON
type Printer struct {
	out  io.Writer
	json bool
}

func NewPrinter(out io.Writer, format string) *Printer {
	return &Printer{out: out, json: format == "json"}
}

func (p *Printer) Success(format string, args ...any) {
	success.Fprintf(p.out, format+"\n", args...)
}

func (p *Printer) Error(format string, args ...any) {
	failure.Fprintf(p.out, "Error: "+format+"\n", args...)
}

func (p *Printer) Info(format string, args ...any) {
	info.Fprintf(p.out, format+"\n", args...)
}

func (p *Printer) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.out, string(data))
	return err
}

func (p *Printer) Post(post Post) {
	name := post.DisplayName
	if name == "" {
		name = post.Username
	}
	bold.Fprintf(p.out, "%s", name)
	faint.Fprintf(p.out, " @%s · %s", post.Username, humanize(post.CreatedAt))
	if post.Source != "" {
		faint.Fprintf(p.out, " · %s", post.Source)
	}
	fmt.Fprintln(p.out)

	if post.OriginalPostID != nil {
		info.Fprintf(p.out, "  ↻ repost of %s\n", *post.OriginalPostID)
	}
	if post.Content != nil {
		fmt.Fprintf(p.out, "  %s\n", *post.Content)
	}
	if post.ImageURL != nil {
		faint.Fprintf(p.out, "  [image] %s\n", *post.ImageURL)
	}
	faint.Fprintf(p.out, "  ♥ %d  💬 %d  ↻ %d  id:%s\n\n", post.LikeCount, post.CommentCount, post.RepostCount, post.ID)
}

func (p *Printer) Feed(page *FeedPage) error {
	if p.json {
		return p.JSON(page)
	}
	if page.ColdStart {
		p.Info("Follow people to see their posts here. Showing posts matching your interests.")
	}
	if len(page.Posts) == 0 {
		p.Info("Nothing to show yet.")
		return nil
	}
	for _, post := range page.Posts {
		p.Post(post)
	}
	if page.HasMore && page.NextCursorToken != nil {
		faint.Fprintf(p.out, "More: projecty feed --cursor '%s'\n", *page.NextCursorToken)
	}
	return nil
}

func (p *Printer) Posts(posts []Post) error {
	if p.json {
		return p.JSON(posts)
	}
	if len(posts) == 0 {
		p.Info("No posts found.")
		return nil
	}
	for _, post := range posts {
		p.Post(post)
	}
	return nil
}

func (p *Printer) Notifications(items []Notification) error {
	if p.json {
		return p.JSON(items)
	}
	if len(items) == 0 {
		p.Info("No notifications.")
		return nil
	}
	for _, n := range items {
		marker := " "
		if !n.IsRead {
			marker = success.Sprint("●")
		}
		fmt.Fprintf(p.out, "%s %s %s ", marker, bold.Sprint("@"+n.TriggerUser.Username), n.Message)
		faint.Fprintf(p.out, "%s\n", humanize(n.Timestamp))
	}
	return nil
}

func (p *Printer) Users(users []UserHit) error {
	if p.json {
		return p.JSON(users)
	}
	if len(users) == 0 {
		p.Info("No users found.")
		return nil
	}
	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tNAME\tBIO")
	for _, u := range users {
		bio := ""
		if u.Bio != nil {
			bio = truncate(*u.Bio, 50)
		}
		fmt.Fprintf(tw, "@%s\t%s\t%s\n", u.Username, u.DisplayName, bio)
	}
	return tw.Flush()
}

// humanize renders t relative to now for recent times
func humanize(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Local().Format("Jan 2, 2006")
	}
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
