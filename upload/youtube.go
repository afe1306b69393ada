// Package upload publishes a finished short to YouTube via the Data API v3.
package upload

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"shortform-pipeline/config"
	"shortform-pipeline/types"
)

// Uploader pushes videos to YouTube using env-supplied OAuth credentials.
type Uploader struct {
	cfg *config.UploadConfig
}

func New(cfg *config.UploadConfig) *Uploader {
	return &Uploader{cfg: cfg}
}

// Run uploads videoFile with metadata derived from the script and returns
// the video ID and watch URL.
func (u *Uploader) Run(ctx context.Context, videoFile string, s *types.Script) (string, string, error) {
	log.Info("[upload] Authenticating with YouTube API...")

	client, err := u.oauthClient(ctx)
	if err != nil {
		return "", "", fmt.Errorf("youtube auth: %w", err)
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", "", fmt.Errorf("youtube service: %w", err)
	}

	title := shortsTitle(s.Title)
	log.Infof("[upload] Uploading: %q", title)

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                title,
			Description:          description(s),
			Tags:                 tags(s),
			CategoryId:           u.cfg.CategoryID,
			DefaultLanguage:      u.cfg.DefaultLanguage,
			DefaultAudioLanguage: u.cfg.DefaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           u.cfg.Visibility,
			SelfDeclaredMadeForKids: u.cfg.MadeForKids,
		},
	}

	f, err := os.Open(videoFile)
	if err != nil {
		return "", "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		log.Infof("[upload] File size: %.1f MB", float64(fi.Size())/1024/1024)
	}

	call := svc.Videos.Insert([]string{"snippet", "status"}, video)
	call.NotifySubscribers(u.cfg.NotifySubscribers)
	call.Media(f)

	uploaded, err := call.Do()
	if err != nil {
		return "", "", fmt.Errorf("youtube upload: %w", err)
	}

	videoURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id)
	log.Infof("[upload] ✅ Uploaded: %s", videoURL)
	return uploaded.Id, videoURL, nil
}

// oauthClient builds an HTTP client from a long-lived refresh token. The
// access token is refreshed on first use.
func (u *Uploader) oauthClient(ctx context.Context) (*http.Client, error) {
	clientID := os.Getenv("YOUTUBE_CLIENT_ID")
	clientSecret := os.Getenv("YOUTUBE_CLIENT_SECRET")
	refreshToken := os.Getenv("YOUTUBE_REFRESH_TOKEN")
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return conf.Client(ctx, token), nil
}

// YouTube titles cap at 100 characters; Shorts need the hashtag to be
// routed to the Shorts shelf.
func shortsTitle(title string) string {
	const suffix = " #shorts"
	max := 100 - len(suffix)
	for len(title) > max {
		_, size := utf8.DecodeLastRuneInString(title)
		title = title[:len(title)-size]
	}
	return title + suffix
}

func description(s *types.Script) string {
	var b strings.Builder
	b.WriteString(s.Title)
	b.WriteString("\n\n")
	for _, sc := range s.Scenes {
		b.WriteString(sc.NarrationText)
		b.WriteString("\n")
	}
	b.WriteString("\n#shorts")
	return b.String()
}

func tags(s *types.Script) []string {
	base := []string{"shorts", "ai"}
	for _, word := range strings.Fields(s.Topic) {
		word = strings.Trim(strings.ToLower(word), ".,!?\"'")
		if len(word) > 3 {
			base = append(base, word)
		}
		if len(base) >= 10 {
			break
		}
	}
	return base
}
