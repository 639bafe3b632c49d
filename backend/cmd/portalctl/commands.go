package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/docopt/docopt-go"
	"golang.org/x/term"

	"uniportal/backend/internal/advising"
	"uniportal/backend/internal/gradebook"
	"uniportal/backend/internal/noticeboard"
	"uniportal/backend/internal/reconcile"
	"uniportal/backend/internal/restclient"
	"uniportal/backend/internal/session"
	"uniportal/backend/internal/shared"
	"uniportal/backend/internal/transcript"
)

// stdin is shared so piped answers are not lost between prompts
var stdin = bufio.NewReader(os.Stdin)

type cli struct {
	opts docopt.Opts
	cfg  *shared.ClientConfig
	base *restclient.Client
}

// ============================================================================
// Session & prompts
// ============================================================================

func (c *cli) login(ctx context.Context, role string) (*session.Session, error) {
	email, _ := c.opts.String("--email")
	password, err := readPassword(fmt.Sprintf("Password for %s: ", email))
	if err != nil {
		return nil, err
	}
	return session.NewAuthenticator(c.base).Login(ctx, role, email, password)
}

func (c *cli) collectionOpts() []reconcile.CollectionOption {
	return []reconcile.CollectionOption{reconcile.WithMinFlagDuration(c.cfg.MinFlagDuration)}
}

func readPassword(prompt string) (string, error) {
	if p := os.Getenv("PORTAL_PASSWORD"); p != "" {
		return p, nil
	}
	return readSecret(prompt)
}

func readSecret(prompt string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

// confirmer asks on the terminal unless --yes was given
func (c *cli) confirmer() reconcile.Confirmer {
	yes, _ := c.opts.Bool("--yes")
	return reconcile.ConfirmFunc(func(_ context.Context, prompt string) bool {
		if yes {
			return true
		}
		fmt.Fprintf(os.Stderr, "%s [y/N] ", prompt)
		answer, _ := stdin.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	})
}

// describe renders err the way the dashboards show it inline
func describe(err error) string {
	if errors.Is(err, reconcile.ErrCancelled) {
		return "cancelled"
	}
	return reconcile.UserMessage(err, err.Error())
}

// ============================================================================
// Transcript
// ============================================================================

func (c *cli) results(ctx context.Context) error {
	sess, err := c.login(ctx, shared.RoleStudent)
	if err != nil {
		return err
	}
	defer sess.Logout()

	tr, err := transcript.New(sess, c.base, c.collectionOpts()...)
	if err != nil {
		return err
	}
	if err := tr.Load(ctx); err != nil {
		return err
	}
	printTranscript(tr.View())
	return nil
}

func printTranscript(v transcript.View) {
	Out.Printf("%s  %s  (%s, semester %s)", v.StudentID, v.Name, v.Department, v.Semester)
	if v.Empty != "" {
		Out.Println(v.Empty)
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "COURSE\tNAME\tRESULT")
		for _, l := range v.Courses {
			result := "-"
			if l.Graded {
				result = gradebook.FormatResult(l.Result)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", l.CourseID, l.CourseName, result)
		}
		w.Flush()
	}

	// results for courses no longer enrolled
	for _, l := range v.Results {
		if !l.Enrolled {
			Out.Printf("%s (dropped)  %s", l.CourseID, gradebook.FormatResult(l.Result))
		}
	}
	if len(v.Results) == 0 && v.Empty == "" {
		Out.Println(transcript.MsgNoResults)
	}
}

// ============================================================================
// Gradebook
// ============================================================================

func (c *cli) openGradebook(ctx context.Context) (*gradebook.Gradebook, error) {
	sess, err := c.login(ctx, shared.RoleTeacher)
	if err != nil {
		return nil, err
	}
	g, err := gradebook.New(sess, c.base, c.confirmer(), c.collectionOpts()...)
	if err != nil {
		return nil, err
	}
	if err := g.Load(ctx); err != nil {
		return nil, err
	}
	if course, _ := c.opts.String("--course"); course != "" {
		if err := g.Select(course); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (c *cli) grades(ctx context.Context) error {
	g, err := c.openGradebook(ctx)
	if err != nil {
		return err
	}
	printGradebook(g.View())
	return nil
}

func (c *cli) grade(ctx context.Context) error {
	g, err := c.openGradebook(ctx)
	if err != nil {
		return err
	}
	studentID, _ := c.opts.String("<student_id>")
	result, _ := c.opts.String("<result>")

	if err := g.SetResult(studentID, result); err != nil {
		return err
	}
	if _, err := g.Save(ctx, studentID); err != nil {
		return err
	}
	printGradebook(g.View())
	return nil
}

func (c *cli) ungrade(ctx context.Context) error {
	g, err := c.openGradebook(ctx)
	if err != nil {
		return err
	}
	studentID, _ := c.opts.String("<student_id>")

	if _, err := g.Delete(ctx, studentID); err != nil {
		return err
	}
	printGradebook(g.View())
	return nil
}

func printGradebook(v gradebook.View) {
	if v.Course != "" {
		Out.Printf("%s  %s", v.Course, v.CourseName)
	}
	if v.Empty != "" {
		Out.Println(v.Empty)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STUDENT\tNAME\tSEMESTER\tRESULT")
	for _, r := range v.Rows {
		result := r.Input
		if r.Pending {
			result += " *"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.StudentID, r.Name, r.Semester, result)
	}
	w.Flush()
}

// ============================================================================
// Advising
// ============================================================================

func (c *cli) openAdvising(ctx context.Context) (*advising.Advising, error) {
	sess, err := c.login(ctx, shared.RoleAdvisor)
	if err != nil {
		return nil, err
	}
	a, err := advising.New(sess, c.base, c.confirmer(), c.collectionOpts()...)
	if err != nil {
		return nil, err
	}
	if err := a.Load(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (c *cli) students(ctx context.Context) error {
	a, err := c.openAdvising(ctx)
	if err != nil {
		return err
	}
	printAdvising(a.View())
	return nil
}

func (c *cli) enroll(ctx context.Context) error {
	a, err := c.openAdvising(ctx)
	if err != nil {
		return err
	}
	studentID, _ := c.opts.String("<student_id>")
	course, _ := c.opts.String("<course>")

	a.SetNewCourse(studentID, course)
	if _, err := a.AddCourse(ctx, studentID); err != nil {
		return err
	}
	printAdvising(a.View())
	return nil
}

func (c *cli) unenroll(ctx context.Context) error {
	a, err := c.openAdvising(ctx)
	if err != nil {
		return err
	}
	studentID, _ := c.opts.String("<student_id>")
	course, _ := c.opts.String("<course>")

	if _, err := a.DeleteCourse(ctx, studentID, course); err != nil {
		return err
	}
	printAdvising(a.View())
	return nil
}

func printAdvising(v advising.View) {
	Out.Printf("Department %s", v.Department)
	if v.Empty != "" {
		Out.Println(v.Empty)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STUDENT\tNAME\tSEMESTER\tCOURSES")
	for _, r := range v.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.StudentID, r.Name, r.Semester, strings.Join(r.Courses, ", "))
	}
	w.Flush()
}

// ============================================================================
// Notices
// ============================================================================

func (c *cli) openBoard(ctx context.Context) (*noticeboard.Board, error) {
	sess, err := c.login(ctx, shared.RoleAdmin)
	if err != nil {
		return nil, err
	}
	b, err := noticeboard.New(sess, c.base, c.confirmer(), c.collectionOpts()...)
	if err != nil {
		return nil, err
	}
	if err := b.Load(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *cli) notices(ctx context.Context) error {
	notices, err := noticeboard.ListNotices(ctx, c.base)
	if err != nil {
		return err
	}
	printNotices(notices)
	return nil
}

func (c *cli) noticeAdd(ctx context.Context) error {
	b, err := c.openBoard(ctx)
	if err != nil {
		return err
	}
	title, _ := c.opts.String("--title")
	description, _ := c.opts.String("--description")

	b.SetDraft(noticeboard.FieldTitle, title)
	b.SetDraft(noticeboard.FieldDescription, description)
	msg, err := b.Publish(ctx)
	if err != nil {
		return err
	}
	Out.Println(msg)
	printNotices(b.Notices())
	return nil
}

func (c *cli) noticeRemove(ctx context.Context) error {
	b, err := c.openBoard(ctx)
	if err != nil {
		return err
	}
	id, _ := c.opts.String("<notice_id>")

	msg, err := b.Delete(ctx, id)
	if err != nil {
		return err
	}
	Out.Println(msg)
	return nil
}

func printNotices(notices []shared.Notice) {
	if len(notices) == 0 {
		Out.Println("No notices.")
		return
	}
	for _, n := range notices {
		Out.Printf("[%s] %s  (%s)\n    %s", n.CreatedAt.Format("2006-01-02"), n.Title, n.ID, n.Description)
	}
}

// ============================================================================
// Password
// ============================================================================

func (c *cli) passwd(ctx context.Context) error {
	role, _ := c.opts.String("--role")
	if !shared.IsValidRole(role) {
		return fmt.Errorf("unknown role %q", role)
	}
	sess, err := c.login(ctx, role)
	if err != nil {
		return err
	}
	defer sess.Logout()

	oldPassword, err := readSecret("Current password: ")
	if err != nil {
		return err
	}
	newPassword, err := readSecret("New password: ")
	if err != nil {
		return err
	}
	confirmPassword, err := readSecret("Confirm new password: ")
	if err != nil {
		return err
	}

	if err := sess.ChangePassword(ctx, c.base, oldPassword, newPassword, confirmPassword); err != nil {
		return err
	}
	Out.Println("Password updated successfully")
	return nil
}
