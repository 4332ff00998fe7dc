package store

import "fmt"

// CreateJobLog 创建任务日志（kind: import/recompute），返回行 id
func (s *Store) CreateJobLog(jobID, kind, source string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO job_logs (job_id, kind, source, status)
		VALUES (?, ?, ?, 'processing')
	`, jobID, kind, source)
	if err != nil {
		return 0, fmt.Errorf("failed to create job log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get job log id: %w", err)
	}
	return id, nil
}

// UpdateJobLog 完成任务日志更新
func (s *Store) UpdateJobLog(id int64, totalRows, processedRows, skippedRows, errorRows int, status, errorMessage string) error {
	_, err := s.db.Exec(`
		UPDATE job_logs SET
			total_rows = ?,
			processed_rows = ?,
			skipped_rows = ?,
			error_rows = ?,
			status = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, totalRows, processedRows, skippedRows, errorRows, status, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update job log: %w", err)
	}
	return nil
}

// JobLog 任务日志行
type JobLog struct {
	ID            int64  `json:"id"`
	JobID         string `json:"jobId"`
	Kind          string `json:"kind"`
	Source        string `json:"source"`
	TotalRows     int    `json:"totalRows"`
	ProcessedRows int    `json:"processedRows"`
	SkippedRows   int    `json:"skippedRows"`
	ErrorRows     int    `json:"errorRows"`
	Status        string `json:"status"`
	ErrorMessage  string `json:"errorMessage"`
}

// ListJobLogs 最近的任务日志（倒序）
func (s *Store) ListJobLogs(limit int) ([]*JobLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, job_id, kind, source, total_rows, processed_rows, skipped_rows, error_rows, status, error_message
		FROM job_logs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query job logs: %w", err)
	}
	defer rows.Close()

	var out []*JobLog
	for rows.Next() {
		l := &JobLog{}
		err := rows.Scan(&l.ID, &l.JobID, &l.Kind, &l.Source, &l.TotalRows, &l.ProcessedRows, &l.SkippedRows, &l.ErrorRows, &l.Status, &l.ErrorMessage)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
