package parser

import (
	"encoding/xml"
	"strings"

	"github.com/trackline/jobsonar/internal/domain"
)

// RSSFeed is the subset of an RSS 2.0 document job feeds use.
type RSSFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel RSSChannel `xml:"channel"`
}

type RSSChannel struct {
	Title string    `xml:"title"`
	Items []RSSItem `xml:"item"`
}

type RSSItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Category    string `xml:"category"`
	Location    string `xml:"location"`
}

// ParseRSSItem converts one feed item to a canonical job. Feeds rarely
// carry a location field; some embed it in the title as
// "Title - Location", which is split off when present.
func ParseRSSItem(item RSSItem) domain.Job {
	job := domain.Job{
		ExternalID:  item.GUID,
		Title:       strings.TrimSpace(item.Title),
		JobURL:      strings.TrimSpace(item.Link),
		Description: htmlCleaner.CleanToText(item.Description),
		Department:  strings.TrimSpace(item.Category),
		Location:    strings.TrimSpace(item.Location),
		PostedDate:  ParseDate(item.PubDate),
	}
	if job.ExternalID == "" {
		job.ExternalID = job.JobURL
	}
	if job.Location == "" {
		if idx := strings.LastIndex(job.Title, " - "); idx > 0 {
			job.Location = strings.TrimSpace(job.Title[idx+3:])
			job.Title = strings.TrimSpace(job.Title[:idx])
		}
	}
	return job
}
