// ABOUTME: Page content for each portal route
// ABOUTME: Fetches through the client and renders plain styled text for the viewport

package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/carportal/carportal-cli/internal/client"
	"github.com/carportal/carportal-cli/internal/guard"
	"github.com/carportal/carportal-cli/internal/session"
	"github.com/carportal/carportal-cli/internal/tui/icons"
	"github.com/carportal/carportal-cli/internal/tui/styles"
)

// pageAPI is the part of the client the pages read from
type pageAPI interface {
	Catalog(ctx context.Context) ([]client.Car, error)
	Car(ctx context.Context, id int64) (*client.Car, error)
	NewsList(ctx context.Context) ([]client.News, error)
	NewsItem(ctx context.Context, id int64) (*client.News, error)
	Favorites(ctx context.Context) ([]client.Car, error)
	Dashboard(ctx context.Context) (*session.Session, error)
	AdminUsers(ctx context.Context) ([]session.Session, error)
	AdminCars(ctx context.Context) ([]client.Car, error)
	AdminNews(ctx context.Context) ([]client.News, error)
	ModeratorNews(ctx context.Context) ([]client.News, error)
}

// homeHeadlines is how many articles the home page shows
const homeHeadlines = 5

// renderPage fetches and renders the page for path
func renderPage(ctx context.Context, api pageAPI, path string, sess *session.Session) (string, error) {
	route, params := guard.Match(path)

	switch route.Pattern {
	case guard.HomePath:
		news, err := api.NewsList(ctx)
		if err != nil {
			return "", err
		}
		return renderHome(sess, news), nil

	case "/cars":
		cars, err := api.Catalog(ctx)
		if err != nil {
			return "", err
		}
		return renderCars(cars), nil

	case "/cars/:id":
		id, err := strconv.ParseInt(params["id"], 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid car id %q", params["id"])
		}
		car, err := api.Car(ctx, id)
		if err != nil {
			return "", err
		}
		return renderCar(car), nil

	case "/news", "/moderator/news", "/admin":
		var news []client.News
		var err error
		switch route.Pattern {
		case "/moderator/news":
			news, err = api.ModeratorNews(ctx)
		case "/admin":
			news, err = api.AdminNews(ctx)
		default:
			news, err = api.NewsList(ctx)
		}
		if err != nil {
			return "", err
		}
		return renderNews(news), nil

	case "/news/:id":
		id, err := strconv.ParseInt(params["id"], 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid article id %q", params["id"])
		}
		item, err := api.NewsItem(ctx, id)
		if err != nil {
			return "", err
		}
		return renderArticle(item), nil

	case "/profile":
		profile, err := api.Dashboard(ctx)
		if err != nil {
			return "", err
		}
		return renderProfile(profile), nil

	case "/favorites":
		cars, err := api.Favorites(ctx)
		if err != nil {
			return "", err
		}
		return renderCars(cars), nil

	case "/admin/cars":
		cars, err := api.AdminCars(ctx)
		if err != nil {
			return "", err
		}
		return renderCars(cars), nil

	case "/admin/users":
		users, err := api.AdminUsers(ctx)
		if err != nil {
			return "", err
		}
		return renderUsers(users), nil

	case guard.RegisterPath:
		return "Create an account with:\n\n  carportal register\n\nthen sign in from the menu.", nil

	default:
		return styles.StatusWarning.Render("Page not found: " + path), nil
	}
}

func renderHome(sess *session.Session, news []client.News) string {
	var sb strings.Builder
	if sess != nil {
		sb.WriteString(fmt.Sprintf("Welcome back, %s %s\n\n", styles.ValueStyle.Render(sess.Username), styles.RoleBadge(sess.Role)))
	} else {
		sb.WriteString("Welcome to the Car Portal. Sign in to save favorites.\n\n")
	}

	sb.WriteString(styles.Title.Render(icons.News.String() + " Latest news"))
	sb.WriteString("\n")
	if len(news) == 0 {
		sb.WriteString(styles.Subtitle.Render("No news yet."))
		return sb.String()
	}
	if len(news) > homeHeadlines {
		news = news[:homeHeadlines]
	}
	for _, n := range news {
		sb.WriteString(fmt.Sprintf("%s  %s\n", styles.Subtitle.Render(n.Date), n.Title))
	}
	return sb.String()
}

func renderCars(cars []client.Car) string {
	if len(cars) == 0 {
		return styles.Subtitle.Render("No cars found.")
	}

	var sb strings.Builder
	for _, c := range cars {
		status := styles.StatusOK.Render(icons.CheckOK.String() + " available")
		if !c.Available {
			status = styles.StatusCritical.Render(icons.Critical.String() + " sold")
		}
		sb.WriteString(fmt.Sprintf("%s %s  %s  %s\n",
			styles.KeyStyle.Render(fmt.Sprintf("#%d", c.ID)),
			styles.ValueStyle.Render(c.Brand+" "+c.Model),
			fmt.Sprintf("%d, %.2f", c.Year, c.Price),
			status))
	}
	sb.WriteString(styles.Help.Render(fmt.Sprintf("%d car(s). Press g and enter /cars/<id> for details.", len(cars))))
	return sb.String()
}

func renderCar(c *client.Car) string {
	rows := [][2]string{
		{"Year", strconv.Itoa(c.Year)},
		{"Price", fmt.Sprintf("%.2f", c.Price)},
	}
	if c.SellerName != "" {
		rows = append(rows, [2]string{"Seller", c.SellerName})
	}
	if c.ImageURL != "" {
		rows = append(rows, [2]string{"Image", c.ImageURL})
	}

	var sb strings.Builder
	sb.WriteString(styles.Title.Render(fmt.Sprintf("%s %s %s", icons.Car.String(), c.Brand, c.Model)))
	sb.WriteString("\n")
	sb.WriteString(renderRows(rows))
	if c.Description != "" {
		sb.WriteString("\n\n" + c.Description)
	}
	return sb.String()
}

func renderNews(news []client.News) string {
	if len(news) == 0 {
		return styles.Subtitle.Render("No news found.")
	}

	var sb strings.Builder
	for _, n := range news {
		sb.WriteString(fmt.Sprintf("%s %s\n   %s\n",
			styles.KeyStyle.Render(fmt.Sprintf("#%d", n.ID)),
			styles.ValueStyle.Render(n.Title),
			styles.Subtitle.Render(n.Author+", "+n.Date)))
	}
	return sb.String()
}

func renderArticle(n *client.News) string {
	return styles.Title.Render(n.Title) + "\n" +
		styles.Subtitle.Render(n.Author+", "+n.Date) + "\n\n" +
		n.Content
}

func renderProfile(s *session.Session) string {
	if s == nil {
		return styles.Subtitle.Render("No profile data.")
	}
	rows := [][2]string{
		{"Email", s.Email},
		{"Phone", s.Phone},
		{"Avatar", s.Avatar},
		{"Joined", s.CreatedAt},
		{"Last login", s.LastLoginAt},
	}
	if s.VisitCount > 0 {
		rows = append(rows, [2]string{"Visits", strconv.Itoa(s.VisitCount)})
	}

	return styles.Title.Render(icons.User.String()+" "+s.Username) + " " + styles.RoleBadge(s.Role) + "\n" +
		renderRows(rows)
}

func renderUsers(users []session.Session) string {
	if len(users) == 0 {
		return styles.Subtitle.Render("No users found.")
	}

	var sb strings.Builder
	for _, u := range users {
		sb.WriteString(fmt.Sprintf("%s %s %s  %s\n",
			styles.KeyStyle.Render(fmt.Sprintf("#%d", u.ID)),
			styles.ValueStyle.Render(u.Username),
			styles.RoleBadge(u.Role),
			styles.Subtitle.Render(u.Email)))
	}
	return sb.String()
}

// renderRows renders label/value pairs, skipping empty values
func renderRows(rows [][2]string) string {
	labelStyle := lipgloss.NewStyle().Foreground(styles.Muted).Width(12)
	var lines []string
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		lines = append(lines, labelStyle.Render(r[0])+r[1])
	}
	return strings.Join(lines, "\n")
}
