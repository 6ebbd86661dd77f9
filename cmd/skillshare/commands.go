package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/anonto42/skillshare/internal/media"
	"github.com/anonto42/skillshare/internal/pages"
	"github.com/anonto42/skillshare/internal/session"
)

type command struct {
	usage string
	args  int // minimum number of arguments
	run   func(ctx context.Context, a *app, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"login":           {"<userId> <token>", 2, cmdLogin},
		"logout":          {"", 0, cmdLogout},
		"whoami":          {"", 0, cmdWhoami},
		"users":           {"", 0, cmdUsers},
		"search":          {"<email>", 1, cmdSearch},
		"follow":          {"<userId>", 1, cmdFollow},
		"unfollow":        {"<userId>", 1, cmdUnfollow},
		"notifications":   {"", 0, cmdNotifications},
		"read":            {"<notificationId>", 1, cmdRead},
		"read-all":        {"", 0, cmdReadAll},
		"watch":           {"", 0, cmdWatch},
		"posts":           {"", 0, cmdPosts},
		"edit-post":       {"<postId> <description> [media files...]", 2, cmdEditPost},
		"delete-post":     {"<postId>", 1, cmdDeletePost},
		"like":            {"<postId>", 1, cmdLike},
		"unlike":          {"<postId>", 1, cmdUnlike},
		"plans":           {"", 0, cmdPlans},
		"create-plan":     {"-title T -description D [-topics T] [-resources R]", 0, cmdCreatePlan},
		"enroll":          {"<planId> <course name>", 2, cmdEnroll},
		"remove-course":   {"<planId> <courseId>", 2, cmdRemoveCourse},
		"complete-course": {"<planId> <courseId>", 2, cmdCompleteCourse},
	}
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) banner(msg string) {
	if msg != "" {
		a.printf("! %s\n", msg)
	}
}

// --- session ---

func cmdLogin(ctx context.Context, a *app, args []string) error {
	s, err := a.pages.Sessions.Login(ctx, a.api, args[0], args[1])
	if err != nil {
		return err
	}
	a.printf("Logged in as %s (%s)\n", s.User.Name, s.User.Email)
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.pages.Dashboard.Logout(ctx); err != nil {
		return err
	}
	a.printf("Logged out\n")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	s, err := session.Guard(ctx, a.pages.Sessions)
	if err != nil {
		return err
	}
	a.printf("%s <%s> id=%s following=%d\n", s.User.Name, s.User.Email, s.User.ID, len(s.User.Following))
	info, err := session.InspectToken(s.Token)
	if err != nil {
		a.printf("token: opaque\n")
		return nil
	}
	switch {
	case info.ExpiresAt.IsZero():
		a.printf("token: subject=%s, no expiry\n", info.Subject)
	case info.Expired(time.Now()):
		a.printf("token: subject=%s, expired %s\n", info.Subject, info.ExpiresAt.Format(time.RFC3339))
	default:
		a.printf("token: subject=%s, expires %s\n", info.Subject, info.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// --- dashboard ---

func (a *app) printUsers() {
	v := a.pages.Dashboard.View()
	a.banner(v.Banner)
	if len(v.Users) == 0 {
		a.printf("No users found\n")
		return
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tFOLLOWING")
	for _, u := range v.Users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", u.ID, u.Name, u.Email, u.IsFollowing)
	}
	w.Flush()
}

func cmdUsers(ctx context.Context, a *app, _ []string) error {
	if err := a.pages.Dashboard.Mount(ctx); err != nil {
		return err
	}
	a.printUsers()
	return nil
}

func cmdSearch(ctx context.Context, a *app, args []string) error {
	d := a.pages.Dashboard
	if err := d.Mount(ctx); err != nil {
		return err
	}
	if err := d.Search(ctx, strings.Join(args, " ")); err != nil {
		return err
	}
	a.printUsers()
	return nil
}

func cmdFollow(ctx context.Context, a *app, args []string) error {
	d := a.pages.Dashboard
	if err := d.Mount(ctx); err != nil {
		return err
	}
	if err := d.Follow(ctx, args[0]); err != nil {
		return err
	}
	a.printf("%s\n", d.View().Notice)
	return nil
}

func cmdUnfollow(ctx context.Context, a *app, args []string) error {
	d := a.pages.Dashboard
	if err := d.Mount(ctx); err != nil {
		return err
	}
	if err := d.Unfollow(ctx, args[0]); err != nil {
		return err
	}
	a.printf("%s\n", d.View().Notice)
	return nil
}

// loadNotifications mounts the dashboard and waits for one full poll.
func (a *app) loadNotifications(ctx context.Context) error {
	d := a.pages.Dashboard
	if err := d.Mount(ctx); err != nil {
		return err
	}
	return d.Refresh(ctx)
}

func (a *app) printNotifications() {
	v := a.pages.Dashboard.View()
	a.printf("Notifications (%d unread)\n", v.UnreadCount)
	for _, n := range v.Notifications {
		mark := " "
		if !n.Read {
			mark = "*"
		}
		a.printf("%s %s  %s\n", mark, n.ID, n.Message)
	}
}

func cmdNotifications(ctx context.Context, a *app, _ []string) error {
	if err := a.loadNotifications(ctx); err != nil {
		return err
	}
	a.printNotifications()
	return nil
}

func cmdRead(ctx context.Context, a *app, args []string) error {
	if err := a.loadNotifications(ctx); err != nil {
		return err
	}
	if err := a.pages.Dashboard.MarkRead(ctx, args[0]); err != nil {
		return err
	}
	a.printNotifications()
	return nil
}

func cmdReadAll(ctx context.Context, a *app, _ []string) error {
	if err := a.loadNotifications(ctx); err != nil {
		return err
	}
	res, err := a.pages.Dashboard.MarkAllRead(ctx)
	a.printf("Marked %d as read\n", len(res.Marked))
	if len(res.Failed) > 0 {
		a.printf("Could not mark: %s\n", strings.Join(res.Failed, ", "))
	}
	return err
}

// cmdWatch prints the unread count whenever it changes, until interrupted.
func cmdWatch(ctx context.Context, a *app, _ []string) error {
	if err := a.loadNotifications(ctx); err != nil {
		return err
	}
	a.printNotifications()
	last := a.pages.Dashboard.View().UnreadCount

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := a.pages.Dashboard.View().UnreadCount; n != last {
				last = n
				a.printNotifications()
			}
		}
	}
}

// --- profile ---

func cmdPosts(ctx context.Context, a *app, _ []string) error {
	p := a.pages.Profile
	if err := p.Mount(ctx); err != nil {
		return err
	}
	v := p.View()
	a.banner(v.Banner)
	if v.User != nil {
		a.printf("%s <%s>\n", v.User.Name, v.User.Email)
	}
	if len(v.Posts) == 0 {
		a.printf("No posts yet\n")
		return nil
	}
	for _, post := range v.Posts {
		liked := ""
		if post.Liked {
			liked = " (liked)"
		}
		a.printf("%s  %s\n    %d likes%s, %d comments, %d images, %d videos\n",
			post.ID, post.Description, post.LikeCount, liked, len(post.Comments), len(post.Images), len(post.Videos))
	}
	return nil
}

func cmdEditPost(ctx context.Context, a *app, args []string) error {
	p := a.pages.Profile
	if err := p.Mount(ctx); err != nil {
		return err
	}
	if err := p.StartEdit(args[0]); err != nil {
		return err
	}
	defer p.CancelEdit()
	if err := p.SetEditContent(args[1]); err != nil {
		return err
	}
	if paths := args[2:]; len(paths) > 0 {
		files := make([]media.File, 0, len(paths))
		for _, path := range paths {
			f, err := media.ReadFile(path)
			if err != nil {
				return err
			}
			files = append(files, f)
		}
		if err := p.AttachMedia(files); err != nil {
			return err
		}
	}
	if err := p.SaveEdit(ctx); err != nil {
		return err
	}
	a.printf("Post %s updated\n", args[0])
	return nil
}

func cmdDeletePost(ctx context.Context, a *app, args []string) error {
	p := a.pages.Profile
	if err := p.Mount(ctx); err != nil {
		return err
	}
	if err := p.DeletePost(ctx, args[0]); err != nil {
		return err
	}
	a.printf("Post %s deleted\n", args[0])
	return nil
}

func cmdLike(ctx context.Context, a *app, args []string) error {
	p := a.pages.Profile
	if err := p.Mount(ctx); err != nil {
		return err
	}
	if err := p.Like(ctx, args[0]); err != nil {
		return err
	}
	a.printf("Liked %s\n", args[0])
	return nil
}

func cmdUnlike(ctx context.Context, a *app, args []string) error {
	p := a.pages.Profile
	if err := p.Mount(ctx); err != nil {
		return err
	}
	if err := p.Unlike(ctx, args[0]); err != nil {
		return err
	}
	a.printf("Removed like from %s\n", args[0])
	return nil
}

// --- learning plans ---

func (a *app) printPlans() {
	v := a.pages.LearningPlans.View()
	a.banner(v.Banner)
	if v.Empty != "" {
		a.printf("%s\n", v.Empty)
		return
	}
	for _, plan := range v.Plans {
		a.printf("%s  %s [%s]", plan.ID, plan.Title, plan.ProgressLabel)
		if len(plan.Badges) > 0 {
			a.printf(" badges: %s", strings.Join(plan.Badges, ", "))
		}
		a.printf("\n    %s\n", plan.Description)
		for _, c := range plan.Courses {
			a.printf("    - %s  %s (%s)\n", c.CourseID, c.CourseName, c.Status)
		}
	}
}

func cmdPlans(ctx context.Context, a *app, _ []string) error {
	if err := a.pages.LearningPlans.Mount(ctx); err != nil {
		return err
	}
	a.printPlans()
	return nil
}

func cmdCreatePlan(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("create-plan", flag.ContinueOnError)
	fs.SetOutput(a.out)
	var form pages.PlanForm
	fs.StringVar(&form.Title, "title", "", "plan title")
	fs.StringVar(&form.Description, "description", "", "plan description")
	fs.StringVar(&form.Topics, "topics", "", "topics, free text")
	fs.StringVar(&form.Resources, "resources", "", "resources, free text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	lp := a.pages.LearningPlans
	if err := lp.Mount(ctx); err != nil {
		return err
	}
	plan, err := lp.CreatePlan(ctx, form)
	if err != nil {
		return err
	}
	a.printf("Created plan %s\n", plan.ID)
	return nil
}

func cmdEnroll(ctx context.Context, a *app, args []string) error {
	lp := a.pages.LearningPlans
	if err := lp.Mount(ctx); err != nil {
		return err
	}
	plan, err := lp.Enroll(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	course := plan.Courses[len(plan.Courses)-1]
	a.printf("Enrolled in %s (%s)\n", course.CourseName, course.CourseID)
	return nil
}

func cmdRemoveCourse(ctx context.Context, a *app, args []string) error {
	lp := a.pages.LearningPlans
	if err := lp.Mount(ctx); err != nil {
		return err
	}
	if _, err := lp.RemoveCourse(ctx, args[0], args[1]); err != nil {
		return err
	}
	a.printPlans()
	return nil
}

func cmdCompleteCourse(ctx context.Context, a *app, args []string) error {
	lp := a.pages.LearningPlans
	if err := lp.Mount(ctx); err != nil {
		return err
	}
	if _, err := lp.CompleteCourse(ctx, args[0], args[1]); err != nil {
		return err
	}
	a.printPlans()
	return nil
}
