package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/gitpost/internal/model"
)

// PostgresDraftRepo はPostgreSQLを使用した下書きリポジトリ。
// ストア順はpositionカラムで表現し、List/一括投稿はposition昇順で処理する。
type PostgresDraftRepo struct {
	db *sql.DB
}

// NewPostgresDraftRepo はPostgresDraftRepoを生成する。
func NewPostgresDraftRepo(db *sql.DB) *PostgresDraftRepo {
	return &PostgresDraftRepo{db: db}
}

var _ DraftRepository = (*PostgresDraftRepo)(nil)

const draftColumns = `id, position, project_name, project_url, project_description,
	        project_author, project_stars, project_topic, project_license,
	        pain_point, solution, post_content, created_at, target_date,
	        slot, status, fb_post_id`

// scanDraft は1行分の下書きを読み取る。
func scanDraft(scanner interface{ Scan(dest ...any) error }) (model.Draft, error) {
	var d model.Draft
	var position int
	var fbPostID sql.NullString

	err := scanner.Scan(
		&d.ID, &position,
		&d.Project.Name, &d.Project.URL, &d.Project.Description,
		&d.Project.Author, &d.Project.Stars, &d.Project.Topic, &d.Project.License,
		&d.PainPoint, &d.Solution, &d.PostContent,
		&d.CreatedAt, &d.TargetDate, &d.Slot, &d.Status, &fbPostID,
	)
	if err != nil {
		return model.Draft{}, err
	}
	if fbPostID.Valid {
		d.FBPostID = fbPostID.String
	}
	return d, nil
}

// List は全下書きをposition昇順で返す。
func (r *PostgresDraftRepo) List(ctx context.Context) ([]model.Draft, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+draftColumns+` FROM drafts ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("下書き一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	drafts := []model.Draft{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("下書きの読み取りに失敗しました: %w", err)
		}
		drafts = append(drafts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("下書き一覧の走査に失敗しました: %w", err)
	}
	return drafts, nil
}

// FindByID は指定IDの下書きを取得する。見つからない場合はnilを返す。
func (r *PostgresDraftRepo) FindByID(ctx context.Context, id string) (*model.Draft, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+draftColumns+` FROM drafts WHERE id = $1`, id)

	d, err := scanDraft(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("下書きの取得に失敗しました: %w", err)
	}
	return &d, nil
}

// ReplaceAll はストアの内容を新しいバッチで完全に置き換える。
// 削除と挿入を同一トランザクションで実行する。
func (r *PostgresDraftRepo) ReplaceAll(ctx context.Context, drafts []model.Draft) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM drafts`); err != nil {
		return fmt.Errorf("既存スケジュールの削除に失敗しました: %w", err)
	}

	for i, d := range drafts {
		if err := insertDraft(ctx, tx, d, i); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// Prepend は既存の下書きを後方にずらし、先頭に挿入する。
func (r *PostgresDraftRepo) Prepend(ctx context.Context, draft model.Draft) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE drafts SET position = position + 1`); err != nil {
		return fmt.Errorf("下書き順序の更新に失敗しました: %w", err)
	}

	if err := insertDraft(ctx, tx, draft, 0); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// insertDraft は下書きを指定positionで挿入する。
func insertDraft(ctx context.Context, tx *sql.Tx, d model.Draft, position int) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO drafts (id, position, project_name, project_url, project_description,
		                     project_author, project_stars, project_topic, project_license,
		                     pain_point, solution, post_content, created_at, target_date,
		                     slot, status, fb_post_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		d.ID, position,
		d.Project.Name, d.Project.URL, d.Project.Description,
		d.Project.Author, d.Project.Stars, d.Project.Topic, d.Project.License,
		d.PainPoint, d.Solution, d.PostContent,
		d.CreatedAt, d.TargetDate, d.Slot, d.Status, nullString(d.FBPostID),
	)
	if err != nil {
		return fmt.Errorf("下書きの挿入に失敗しました: %w", err)
	}
	return nil
}

// UpdateFields は編集可能な3フィールドのみを置き換える。
func (r *PostgresDraftRepo) UpdateFields(ctx context.Context, id, postContent string, slot model.Slot, targetDate string) (*model.Draft, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE drafts SET post_content = $2, slot = $3, target_date = $4 WHERE id = $1`,
		id, postContent, slot, targetDate,
	)
	if err != nil {
		return nil, fmt.Errorf("下書きの更新に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("更新結果の確認に失敗しました: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return r.FindByID(ctx, id)
}

// MarkPosted は下書きを投稿済みにし、外部投稿IDを記録する。
func (r *PostgresDraftRepo) MarkPosted(ctx context.Context, id, fbPostID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE drafts SET status = $2, fb_post_id = $3 WHERE id = $1`,
		id, model.DraftStatusPosted, fbPostID,
	)
	if err != nil {
		return fmt.Errorf("投稿済みステータスの記録に失敗しました: %w", err)
	}
	return nil
}

// MarkFailed は下書きを失敗状態にする。
func (r *PostgresDraftRepo) MarkFailed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE drafts SET status = $2 WHERE id = $1`,
		id, model.DraftStatusFailed,
	)
	if err != nil {
		return fmt.Errorf("失敗ステータスの記録に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの下書きを削除する。
func (r *PostgresDraftRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("下書きの削除に失敗しました: %w", err)
	}
	return nil
}

// nullString は空文字列をNULLに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
