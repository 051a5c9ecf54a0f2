package memoir

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

const artifactPrefix = "memoir_"

// Artifact は生成済みPDFの一覧表示用メタデータです。
type Artifact struct {
	FileName  string    `json:"fileName"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
	Size      int64     `json:"size"`
	Pages     int       `json:"pages,omitempty"`
}

// artifactFileName は成果物のファイル名を組み立てます。
// ユーザーIDと生成時刻の組を一意として扱います。
func artifactFileName(ownerID string, t time.Time) string {
	return fmt.Sprintf("%s%s_%d.pdf", artifactPrefix, ownerID, t.UnixMilli())
}

// ownerFilePrefix は指定ユーザーの成果物が持つファイル名プレフィックスです。
func ownerFilePrefix(ownerID string) string {
	return artifactPrefix + ownerID + "_"
}

// ListArtifacts は指定ユーザーの生成済みPDFを新しい順に返します。
// 出力ディレクトリが未作成の場合は空リストを返します。
func (s *Service) ListArtifacts(ownerID string) ([]Artifact, error) {
	entries, err := os.ReadDir(s.cfg.PDFOutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Artifact{}, nil
		}
		return nil, newError("LIST_FAILED", "获取PDF列表失败", err)
	}

	prefix := ownerFilePrefix(ownerID)
	artifacts := make([]Artifact, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".pdf") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		fullPath := filepath.Join(s.cfg.PDFOutputDir, name)
		pages, err := pdfapi.PageCountFile(fullPath)
		if err != nil {
			// ページ数は表示用の付加情報なので、数えられなくても一覧には載せる
			s.logger.Printf("读取PDF页数失败: %s: %v", name, err)
			pages = 0
		}

		artifacts = append(artifacts, Artifact{
			FileName:  name,
			URL:       strings.TrimRight(s.cfg.PDFPublicBaseURL, "/") + "/" + name,
			CreatedAt: info.ModTime(),
			Size:      info.Size(),
			Pages:     pages,
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.After(artifacts[j].CreatedAt)
	})
	return artifacts, nil
}

// DeleteArtifact は指定ユーザー自身の成果物を削除します。
// 他ユーザーのプレフィックスを持つファイル名は存在しないものとして扱います。
func (s *Service) DeleteArtifact(ownerID, fileName string) error {
	if fileName != filepath.Base(fileName) || strings.Contains(fileName, "..") {
		return newError("PDF_NOT_FOUND", "指定的PDF不存在", nil)
	}
	if !strings.HasPrefix(fileName, ownerFilePrefix(ownerID)) || !strings.HasSuffix(fileName, ".pdf") {
		return newError("PDF_NOT_FOUND", "指定的PDF不存在", nil)
	}

	err := os.Remove(filepath.Join(s.cfg.PDFOutputDir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return newError("PDF_NOT_FOUND", "指定的PDF不存在", nil)
		}
		return newError("DELETE_FAILED", "删除PDF失败", err)
	}
	return nil
}
