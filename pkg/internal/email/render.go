package email

import (
	"fmt"
	"strings"
	"time"
)

// DigestDocument is the render-ready shape of one digest: account sections
// ordered by each group's earliest post, posts ascending inside a section.
type DigestDocument struct {
	DigestID    uint
	PeriodStart time.Time
	PeriodEnd   time.Time
	Sections    []AccountSection
}

type AccountSection struct {
	Handle string
	URL    string
	Posts  []PostView
}

type PostView struct {
	Shortcode    string
	Caption      string
	PublishedAt  time.Time
	ThumbnailURL string
}

// Permalink composes the public post URL from its shortcode.
func (v PostView) Permalink() string {
	return fmt.Sprintf("https://www.instagram.com/p/%s/", v.Shortcode)
}

func formatDigestBody(document DigestDocument) string {
	var b strings.Builder

	writeHead(&b)

	b.WriteString("<div class=\"header\">\n")
	b.WriteString(fmt.Sprintf("<h2>Instagram digest &mdash; %s to %s</h2>\n",
		document.PeriodStart.Format("Jan 2, 2006"),
		document.PeriodEnd.Format("Jan 2, 2006")))
	b.WriteString("</div>\n")

	for _, section := range document.Sections {
		b.WriteString("<div class=\"account\">\n")
		b.WriteString(fmt.Sprintf("<h3><a href=\"%s\">@%s</a></h3>\n",
			escapeHTML(section.URL), escapeHTML(section.Handle)))

		for _, post := range section.Posts {
			b.WriteString("<div class=\"post\">\n")
			if post.ThumbnailURL != "" {
				b.WriteString(fmt.Sprintf("<img class=\"thumb\" src=\"%s\" alt=\"\">\n",
					escapeHTML(post.ThumbnailURL)))
			}
			b.WriteString(fmt.Sprintf("<span class=\"timestamp\">%s</span>\n",
				post.PublishedAt.Format("Jan 2, 2006 at 3:04 PM")))
			if post.Caption != "" {
				b.WriteString(fmt.Sprintf("<div class=\"caption\">%s</div>\n",
					escapeHTML(post.Caption)))
			}
			b.WriteString(fmt.Sprintf("<a href=\"%s\" class=\"view-post\">View post</a>\n",
				escapeHTML(post.Permalink())))
			b.WriteString("</div>\n")
		}
		b.WriteString("</div>\n")
	}

	b.WriteString("<div class=\"footer\">Sent by instafetch</div>\n")
	b.WriteString("</body>\n</html>")

	return b.String()
}

func formatAlertBody(handle string, count int, at time.Time) string {
	var b strings.Builder

	writeHead(&b)
	b.WriteString("<div class=\"header\">\n")
	b.WriteString(fmt.Sprintf("<h2>@%s just posted</h2>\n", escapeHTML(handle)))
	b.WriteString("</div>\n")
	b.WriteString(fmt.Sprintf("<p>%d new post(s) observed at %s.</p>\n",
		count, at.Format("Jan 2, 2006 at 3:04 PM")))
	b.WriteString(fmt.Sprintf("<a href=\"https://www.instagram.com/%s/\">Open profile</a>\n",
		escapeHTML(handle)))
	b.WriteString("</body>\n</html>")

	return b.String()
}

func writeHead(b *strings.Builder) {
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<style>\n")
	b.WriteString("body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }\n")
	b.WriteString(".header { border-bottom: 2px solid #d6249f; padding-bottom: 10px; margin-bottom: 20px; }\n")
	b.WriteString(".account { margin-bottom: 30px; }\n")
	b.WriteString(".post { margin-bottom: 20px; padding-bottom: 15px; border-bottom: 1px solid #ecf0f1; }\n")
	b.WriteString(".thumb { max-width: 160px; border-radius: 8px; display: block; margin-bottom: 8px; }\n")
	b.WriteString(".timestamp { color: #7f8c8d; font-size: 0.9em; }\n")
	b.WriteString(".caption { background: #f8f9fa; padding: 12px; border-radius: 8px; margin: 10px 0; white-space: pre-wrap; }\n")
	b.WriteString(".footer { margin-top: 20px; padding-top: 10px; border-top: 2px solid #ecf0f1; color: #7f8c8d; font-size: 0.9em; }\n")
	b.WriteString("a { color: #d6249f; text-decoration: none; }\n")
	b.WriteString("</style>\n</head>\n<body>\n")
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	return s
}
