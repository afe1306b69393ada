// Package research suggests video topics from trending Reddit posts, for
// runs started without an explicit topic.
package research

import (
	"context"
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/vartanbeno/go-reddit/v2/reddit"

	"shortform-pipeline/config"
)

// Topic is a candidate subject for a short.
type Topic struct {
	Title  string
	Source string
	Score  int
}

type Scraper struct {
	cfg    *config.ResearchConfig
	client *reddit.Client
}

func NewScraper(cfg *config.ResearchConfig) (*Scraper, error) {
	client, err := reddit.NewReadonlyClient()
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}
	return &Scraper{cfg: cfg, client: client}, nil
}

// Suggest returns candidate topics sorted by score, best first. Subreddits
// that fail to respond are skipped with a warning; only a total blank is an
// error.
func (s *Scraper) Suggest(ctx context.Context) ([]Topic, error) {
	var topics []Topic
	for _, sub := range s.cfg.Subreddits {
		posts, _, err := s.client.Subreddit.HotPosts(ctx, sub, &reddit.ListOptions{
			Limit: s.cfg.MaxPosts,
		})
		if err != nil {
			log.Warnf("[research] r/%s: %v", sub, err)
			continue
		}
		for _, post := range posts {
			if post.Stickied || post.NSFW {
				continue
			}
			if post.Score < s.cfg.MinScore {
				continue
			}
			if !usableTitle(post.Title) {
				continue
			}
			topics = append(topics, Topic{
				Title:  cleanTitle(post.Title),
				Source: "r/" + sub,
				Score:  post.Score,
			})
		}
		log.Infof("[research] r/%s: %d candidates", sub, len(posts))
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("no topics found in %v", s.cfg.Subreddits)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Score > topics[j].Score })
	return topics, nil
}

// Pick returns the single best topic.
func (s *Scraper) Pick(ctx context.Context) (string, error) {
	topics, err := s.Suggest(ctx)
	if err != nil {
		return "", err
	}
	best := topics[0]
	log.Infof("[research] ✅ Selected topic: %q (%s, score %d)", best.Title, best.Source, best.Score)
	return best.Title, nil
}

// usableTitle rejects titles too short or too long to prompt a script from.
func usableTitle(title string) bool {
	n := len(strings.Fields(title))
	return n >= 4 && n <= 40
}

// cleanTitle strips the "TIL that"-style prefixes subreddits impose so the
// topic reads as a plain subject.
func cleanTitle(title string) string {
	t := strings.TrimSpace(title)
	for _, prefix := range []string{"TIL that ", "TIL: ", "TIL ", "ELI5: ", "ELI5 "} {
		if strings.HasPrefix(t, prefix) {
			t = strings.TrimSpace(strings.TrimPrefix(t, prefix))
			break
		}
	}
	return t
}
