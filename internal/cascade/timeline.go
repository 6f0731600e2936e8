package cascade

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractTimeline builds the milestone→timestamp mapping from the page.
// Each <time datetime> element is paired with the closest label text the
// markup offers. The map may be empty; it is never nil.
func (e *Engine) ExtractTimeline(root *goquery.Selection) map[string]string {
	timeline := make(map[string]string)

	root.Find("time[datetime]").Each(func(i int, sel *goquery.Selection) {
		stamp, _ := sel.Attr("datetime")
		stamp = strings.TrimSpace(stamp)
		if stamp == "" {
			return
		}
		label := timelineLabel(sel)
		if label == "" {
			return
		}
		if _, dup := timeline[label]; dup {
			return
		}
		timeline[label] = stamp
	})

	return timeline
}

// timelineLabel finds the milestone name for a <time> element: its own
// aria-label or title, else the text of the nearest preceding sibling,
// else the parent's text with the timestamp text removed.
func timelineLabel(sel *goquery.Selection) string {
	if label, ok := sel.Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
		return strings.TrimSpace(label)
	}
	if label, ok := sel.Attr("title"); ok && strings.TrimSpace(label) != "" {
		return strings.TrimSpace(label)
	}
	// A sibling carrying its own <time> belongs to another milestone;
	// taking its text would fabricate a label.
	if prev := sel.Prev(); prev.Length() > 0 && prev.Find("time").Length() == 0 {
		if label := strings.TrimSpace(prev.Text()); label != "" {
			return trimLabel(label)
		}
	}
	parent := sel.Parent()
	if parent.Length() == 0 || parent.Find("time").Length() > 1 {
		return ""
	}
	parentText := strings.TrimSpace(parent.Text())
	own := strings.TrimSpace(sel.Text())
	if parentText != "" && own != "" {
		return trimLabel(strings.TrimSpace(strings.Replace(parentText, own, "", 1)))
	}
	return ""
}

func trimLabel(s string) string {
	return strings.TrimSpace(strings.TrimSuffix(s, ":"))
}
