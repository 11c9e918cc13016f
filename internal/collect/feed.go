package collect

import (
	"log"

	"github.com/mmcdole/gofeed"
)

// discoverFromFeed parses the site feed, when one is configured, and returns
// item links shaped like contest articles or forms. Feed failures are logged
// and treated as zero results.
func discoverFromFeed(feedURL string) []string {
	feed, err := gofeed.NewParser().ParseURL(feedURL)
	if err != nil {
		log.Printf("failed to parse feed %s: %v", feedURL, err)
		return nil
	}

	var urls []string
	for _, item := range feed.Items {
		itemURL := item.Link
		if itemURL == "" {
			itemURL = item.GUID
		}
		if itemURL == "" {
			continue
		}
		if articleURLRe.MatchString(itemURL) || formURLRe.MatchString(itemURL) {
			urls = append(urls, itemURL)
		}
	}
	log.Printf("feed yielded %d contest links", len(urls))
	return urls
}
