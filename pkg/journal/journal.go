package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/moyu-x/mediastamp/internal"
	"github.com/moyu-x/mediastamp/pkg/hasher"
	"github.com/moyu-x/mediastamp/pkg/logger"
)

var ErrNoRun = errors.New("运行记录尚未开始")

// Run 一次 update 运行
type Run struct {
	ID             string `gorm:"primaryKey;size:36"`
	Directories    string
	Workers        int
	DryRun         bool
	Total          int
	Updated        int
	NoPatternMatch int
	WriteFailed    int
	ScanError      int
	Skipped        int
	Cancelled      bool
	StartedAt      time.Time `gorm:"not null"`
	FinishedAt     *time.Time
}

func (Run) TableName() string {
	return "runs"
}

// Entry 单个文件的处理结果
type Entry struct {
	ID         int64  `gorm:"primaryKey"`
	RunID      string `gorm:"index;size:36;not null"`
	Path       string `gorm:"index;not null"`
	Kind       string `gorm:"not null"`
	Pattern    string
	Timestamp  *time.Time
	Reason     string
	Verified   bool
	SizeBefore int64
	SizeAfter  int64
	Hash       string
	MovedTo    string
	CreatedAt  time.Time `gorm:"not null"`
}

func (Entry) TableName() string {
	return "entries"
}

type Hasher interface {
	Sum(path string) (uint64, error)
}

// Journal SQLite 运行日志，只由收集协程写入
type Journal struct {
	db    *gorm.DB
	runID string
}

func Open(dbPath string) (*Journal, error) {
	expandedPath, err := expandPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("扩展数据库路径失败: %w", err)
	}

	logger.Get().Info().Msgf("打开运行记录，路径: %s", expandedPath)

	if err := os.MkdirAll(filepath.Dir(expandedPath), 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	dsn := expandedPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库连接失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&Run{}, &Entry{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("创建数据库表失败: %w", err)
	}

	return &Journal{db: db}, nil
}

func expandPath(path string) (string, error) {
	if len(path) >= 2 && path[0] == '~' && (path[1] == '/' || path[1] == '\\') {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Begin 新建一条运行记录并返回其 ID
func (j *Journal) Begin(dirs []string, workers int, dryRun bool) (string, error) {
	run := Run{
		ID:          uuid.NewString(),
		Directories: strings.Join(dirs, ","),
		Workers:     workers,
		DryRun:      dryRun,
		StartedAt:   time.Now(),
	}
	if err := j.db.Create(&run).Error; err != nil {
		return "", fmt.Errorf("创建运行记录失败: %w", err)
	}
	j.runID = run.ID
	logger.Get().Debug().Msgf("运行记录 ID: %s", run.ID)
	return run.ID, nil
}

func (j *Journal) RunID() string {
	return j.runID
}

// Record 写入一个结果
func (j *Journal) Record(o internal.Outcome) error {
	if j.runID == "" {
		return ErrNoRun
	}

	e := Entry{
		RunID:      j.runID,
		Path:       o.File.Path,
		Kind:       o.Kind.String(),
		Pattern:    o.Pattern,
		Reason:     o.Reason,
		Verified:   o.Verified,
		SizeBefore: o.SizeBefore,
		SizeAfter:  o.SizeAfter,
		MovedTo:    o.MovedTo,
		CreatedAt:  time.Now(),
	}
	if !o.Timestamp.IsZero() {
		ts := o.Timestamp
		e.Timestamp = &ts
	}
	if o.Hash != 0 {
		e.Hash = hasher.Format(o.Hash)
	}

	if err := j.db.Create(&e).Error; err != nil {
		return fmt.Errorf("写入记录失败: %w", err)
	}
	return nil
}

// Finish 回写统计
func (j *Journal) Finish(s internal.Summary) error {
	if j.runID == "" {
		return ErrNoRun
	}

	finished := s.EndTime
	if finished.IsZero() {
		finished = time.Now()
	}

	err := j.db.Model(&Run{}).Where("id = ?", j.runID).Updates(map[string]any{
		"total":            s.Total,
		"updated":          s.Updated,
		"no_pattern_match": s.NoPatternMatch,
		"write_failed":     s.WriteFailed,
		"scan_error":       s.ScanError,
		"skipped":          s.Skipped,
		"cancelled":        s.Cancelled,
		"finished_at":      finished,
	}).Error
	if err != nil {
		return fmt.Errorf("更新运行记录失败: %w", err)
	}
	return nil
}

// Stamped 返回每个路径最近一次成功写入后的指纹，dry-run 的记录不算写入
func (j *Journal) Stamped() (map[string]string, error) {
	var entries []Entry
	err := j.db.Model(&Entry{}).
		Select("entries.path, entries.hash").
		Joins("JOIN runs ON runs.id = entries.run_id").
		Where("entries.kind = ? AND entries.hash <> '' AND runs.dry_run = ?", internal.KindUpdated.String(), false).
		Order("entries.id").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("查询记录失败: %w", err)
	}

	stamped := make(map[string]string, len(entries))
	for _, e := range entries {
		stamped[e.Path] = e.Hash
	}
	return stamped, nil
}

// Filter 去掉已经写入过且内容没有变化的文件，返回保留的文件和跳过数量
func (j *Journal) Filter(files []internal.CandidateFile, h Hasher) ([]internal.CandidateFile, int, error) {
	stamped, err := j.Stamped()
	if err != nil {
		return nil, 0, err
	}
	if len(stamped) == 0 {
		return files, 0, nil
	}

	kept := make([]internal.CandidateFile, 0, len(files))
	skipped := 0
	for _, f := range files {
		want, ok := stamped[f.Path]
		if !ok {
			kept = append(kept, f)
			continue
		}
		sum, err := h.Sum(f.Path)
		if err != nil || hasher.Format(sum) != want {
			kept = append(kept, f)
			continue
		}
		logger.Get().Debug().Msgf("已写入且未变化，跳过: %s", f.Path)
		skipped++
	}

	logger.Get().Info().Msgf("断点续跑：跳过 %d 个文件，剩余 %d 个", skipped, len(kept))
	return kept, skipped, nil
}

// Runs 按开始时间倒序列出运行记录
func (j *Journal) Runs(limit int) ([]Run, error) {
	var runs []Run
	q := j.db.Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("查询运行记录失败: %w", err)
	}
	return runs, nil
}

// Entries 返回某次运行的全部结果
func (j *Journal) Entries(runID string) ([]Entry, error) {
	var entries []Entry
	if err := j.db.Where("run_id = ?", runID).Order("id").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("查询记录失败: %w", err)
	}
	return entries, nil
}

func (j *Journal) Close() error {
	logger.Get().Debug().Msg("关闭运行记录")
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
