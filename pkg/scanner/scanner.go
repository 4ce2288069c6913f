package scanner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/h2non/filetype"
	"github.com/maruel/natural"
	"github.com/spf13/afero"

	"github.com/moyu-x/mediastamp/internal"
	"github.com/moyu-x/mediastamp/pkg/logger"
)

// 文件类型检测读取的头部长度
const headerSize = 261

var ErrNoDirectories = errors.New("没有可用的目录")

type Options struct {
	Recursive     bool     // 递归子目录，默认只扫描第一层
	Extensions    []string // 媒体扩展名，不含点，大小写不敏感
	Sniff         bool     // 扩展名不在列表内时按内容识别图片/视频
	IncludeHidden bool
	Exclude       []string // 跳过的目录（例如隔离目录）
}

type ScanStats struct {
	Dirs        int
	Files       int
	SkippedDirs int
	Ignored     int
	Missing     []string
}

type Scanner struct {
	fs      afero.Fs
	opts    Options
	exts    map[string]struct{}
	exclude map[string]struct{}
}

func New(fs afero.Fs, opts Options) *Scanner {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = internal.DefaultExtensions
	}

	s := &Scanner{
		fs:      fs,
		opts:    opts,
		exts:    make(map[string]struct{}, len(opts.Extensions)),
		exclude: make(map[string]struct{}, len(opts.Exclude)),
	}
	for _, e := range opts.Extensions {
		s.exts[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
	}
	for _, d := range opts.Exclude {
		s.exclude[filepath.Clean(d)] = struct{}{}
	}
	return s
}

// Scan 枚举所有目录下的候选文件，结果按自然顺序排序
func (s *Scanner) Scan(dirs []string) ([]internal.CandidateFile, ScanStats, error) {
	var stats ScanStats
	var files []internal.CandidateFile
	seen := make(map[string]struct{})

	logger.Get().Info().Msgf("开始扫描，共 %d 个目录", len(dirs))

	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			abs = filepath.Clean(dir)
		}

		ok, err := afero.DirExists(s.fs, abs)
		if err != nil || !ok {
			logger.Get().Warn().Msgf("目录不存在，跳过: %s", dir)
			stats.Missing = append(stats.Missing, dir)
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		stats.Dirs++

		add := func(path string, info os.FileInfo) {
			cf, keep := s.candidate(path, info)
			if !keep {
				stats.Ignored++
				return
			}
			if _, dup := seen[path]; dup {
				return
			}
			seen[path] = struct{}{}
			files = append(files, cf)
		}

		if s.opts.Recursive {
			err = s.walk(abs, add, &stats)
		} else {
			err = s.flat(abs, add, &stats)
		}
		if err != nil {
			return nil, stats, fmt.Errorf("扫描目录失败 %s: %w", dir, err)
		}
	}

	if stats.Dirs == 0 {
		return nil, stats, ErrNoDirectories
	}

	sort.Slice(files, func(i, j int) bool {
		return natural.Less(files[i].Path, files[j].Path)
	})
	stats.Files = len(files)

	logger.Get().Info().Msgf("扫描完成，候选文件 %d 个，跳过目录 %d 个", stats.Files, stats.SkippedDirs)
	return files, stats, nil
}

// flat 只看第一层，子目录计入跳过
func (s *Scanner) flat(dir string, add func(string, os.FileInfo), stats *ScanStats) error {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return err
	}
	for _, info := range entries {
		path := filepath.Join(dir, info.Name())
		if info.IsDir() {
			logger.Get().Debug().Msgf("跳过子目录: %s", path)
			stats.SkippedDirs++
			continue
		}
		add(path, info)
	}
	return nil
}

func (s *Scanner) walk(root string, add func(string, os.FileInfo), stats *ScanStats) error {
	return afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			logger.Get().Warn().Err(err).Msgf("无法访问: %s", path)
			return nil
		}
		if info.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := s.exclude[filepath.Clean(path)]; skip || s.hidden(info.Name()) {
				stats.SkippedDirs++
				return filepath.SkipDir
			}
			return nil
		}
		add(path, info)
		return nil
	})
}

func (s *Scanner) hidden(name string) bool {
	return !s.opts.IncludeHidden && strings.HasPrefix(name, ".")
}

func (s *Scanner) candidate(path string, info os.FileInfo) (internal.CandidateFile, bool) {
	name := info.Name()
	if !info.Mode().IsRegular() || s.hidden(name) {
		return internal.CandidateFile{}, false
	}

	ext := filepath.Ext(name)
	cf := internal.CandidateFile{
		Path: path,
		Base: strings.TrimSuffix(name, ext),
		Ext:  strings.ToLower(strings.TrimPrefix(ext, ".")),
		Size: info.Size(),
	}

	if _, ok := s.exts[cf.Ext]; ok {
		return cf, true
	}
	if !s.opts.Sniff {
		return cf, false
	}

	media, err := s.Sniff(path)
	if err != nil {
		logger.Get().Debug().Err(err).Msgf("类型检测失败: %s", path)
		return cf, false
	}
	if !media {
		return cf, false
	}

	// 按内容识别的文件，点号之后的部分不一定是扩展名
	cf.Base = name
	cf.Ext = ""
	return cf, true
}

// Sniff 按文件头判断是否为图片或视频
func (s *Scanner) Sniff(path string) (bool, error) {
	file, err := s.fs.Open(path)
	if err != nil {
		return false, fmt.Errorf("打开文件失败: %w", err)
	}
	defer file.Close()

	head := make([]byte, headerSize)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("读取文件头部失败: %w", err)
	}
	head = head[:n]

	return filetype.IsImage(head) || filetype.IsVideo(head), nil
}
