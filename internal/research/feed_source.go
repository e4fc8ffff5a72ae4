// Package research はリポジトリ発見のための代替リサーチソースを提供する。
// AIリサーチの代わりに、運用者が用意したRSS/Atomフィードから
// GitHubリポジトリのリンクを取り込む。
package research

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/gitpost/internal/model"
	"github.com/hitoshi/gitpost/internal/security"
)

// FeedSource は設定されたフィードからGitHubリポジトリを発見するリサーチソース。
// フィードURLは起動時の設定値だが、外部コンテンツの取得であることに変わりはないため
// URLガード付きのHTTPクライアントを通して取得する。
type FeedSource struct {
	parser  *gofeed.Parser
	guard   security.URLGuardService
	logger  *slog.Logger
	feedURL string
	limit   int
}

// NewFeedSource はFeedSourceの新しいインスタンスを生成する。
// httpClientにはguardが生成した安全なクライアントを渡すことを想定している。
func NewFeedSource(httpClient *http.Client, guard security.URLGuardService, logger *slog.Logger, feedURL string, limit int) *FeedSource {
	parser := gofeed.NewParser()
	parser.Client = httpClient

	return &FeedSource{
		parser:  parser,
		guard:   guard,
		logger:  logger,
		feedURL: feedURL,
		limit:   limit,
	}
}

// ResearchProjects はフィードを取得し、GitHubリポジトリへのリンクを持つ
// エントリのみをProjectに変換して返す。
// GitHub以外へのリンクは黙ってスキップする。
func (s *FeedSource) ResearchProjects(ctx context.Context) ([]model.Project, error) {
	if err := s.guard.ValidateURL(s.feedURL); err != nil {
		return nil, fmt.Errorf("リサーチフィードURLの検証に失敗しました: %w", err)
	}

	feed, err := s.parser.ParseURLWithContext(s.feedURL, ctx)
	if err != nil {
		s.logger.Error("リサーチフィードの取得に失敗しました",
			slog.String("feed_url", s.feedURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("リサーチフィードの取得に失敗しました: %w", err)
	}

	projects := make([]model.Project, 0, s.limit)
	skipped := 0
	for _, item := range feed.Items {
		if len(projects) >= s.limit {
			break
		}
		if item.Link == "" || s.guard.ValidateRepositoryURL(item.Link) != nil {
			skipped++
			continue
		}
		projects = append(projects, itemToProject(item))
	}

	s.logger.Info("フィードリサーチが完了しました",
		slog.String("feed_url", s.feedURL),
		slog.Int("project_count", len(projects)),
		slog.Int("skipped", skipped),
	)
	return projects, nil
}

// itemToProject はフィードエントリをProjectに変換する。
// フィードにはスター数やライセンスの情報がないため、
// ライセンスはAIリサーチと同じ "Not Specified" 表記にそろえる。
func itemToProject(item *gofeed.Item) model.Project {
	author := ""
	if item.Author != nil {
		author = item.Author.Name
	}
	if author == "" {
		author = ownerFromRepoURL(item.Link)
	}

	return model.Project{
		Name:        item.Title,
		URL:         item.Link,
		Description: strings.TrimSpace(item.Description),
		Author:      author,
		License:     "Not Specified",
	}
}

// ownerFromRepoURL はリポジトリURLのownerセグメントを返す。
func ownerFromRepoURL(repoURL string) string {
	trimmed := strings.TrimPrefix(repoURL, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")
	segments := strings.Split(trimmed, "/")
	if len(segments) >= 2 {
		return segments[1]
	}
	return ""
}
