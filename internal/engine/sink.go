// Copyright 2026 Patrick J. Scruggs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pjscruggs/slogscope/internal/level"
	"github.com/pjscruggs/slogscope/tree"
)

// Handler classes understood by the engine.
const (
	classStream       = "stream"
	classFile         = "file"
	classRotatingFile = "rotating_file"
	classNull         = "null"
)

// handlerClasses maps accepted class names, including the Python logging
// spellings found in existing configuration files, to engine classes.
var handlerClasses = map[string]string{
	classStream:                            classStream,
	classFile:                              classFile,
	classRotatingFile:                      classRotatingFile,
	classNull:                              classNull,
	"logging.StreamHandler":                classStream,
	"logging.FileHandler":                  classFile,
	"logging.handlers.WatchedFileHandler":  classFile,
	"logging.handlers.RotatingFileHandler": classRotatingFile,
	"logging.NullHandler":                  classNull,
}

const megabyte = 1 << 20

// sink is one compiled handler definition.
type sink struct {
	name      string
	def       *tree.Node
	formatDef *tree.Node

	handler   slog.Handler
	threshold slog.Level
	decorate  func(context.Context, slog.Record) []slog.Attr

	reopen func() error
	closer func() error
}

func (s *sink) accepts(l slog.Level) bool {
	return l >= s.threshold
}

// Close drains and releases the sink's resources.
func (s *sink) Close() error {
	var errs []error
	if a, ok := s.handler.(*asyncHandler); ok {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.closer != nil {
		if err := s.closer(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openSink builds the sink for handler definition def.
func (e *Engine) openSink(name string, def *tree.Node, f formatter, formatDef *tree.Node) (*sink, error) {
	className, err := stringField(def, "class", classStream)
	if err != nil {
		return nil, err
	}
	class, ok := handlerClasses[className]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, className)
	}

	threshold := level.All
	if lv, ok := def.Get("level"); ok {
		l, set, err := parseLevelNode(lv)
		if err != nil {
			return nil, err
		}
		if set {
			threshold = l
		}
	}

	s := &sink{
		name:      name,
		def:       def.Clone(),
		formatDef: formatDef.Clone(),
		threshold: threshold,
	}

	var w io.Writer
	switch class {
	case classStream:
		w, err = e.streamWriter(def)
	case classFile:
		w, err = e.openFile(s, def)
	case classRotatingFile:
		w, err = e.openRotatingFile(s, def)
	case classNull:
		s.handler = slog.DiscardHandler
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	s.handler = f.newHandler(w)
	s.decorate = f.decorator(e)

	async, enabled, err := asyncField(def)
	if err != nil {
		if s.closer != nil {
			_ = s.closer()
		}
		return nil, err
	}
	if enabled {
		s.handler = newAsyncHandler(s.handler, async, asyncHooks{
			onDrop: func() { e.metrics.drop(name) },
			onError: func(err error) {
				e.opts.InternalLogger.Warn("async handler error",
					slog.String("handler", name),
					slog.Any("error", err),
				)
			},
		})
	}
	return s, nil
}

// streamWriter resolves the stream key of a stream handler.
func (e *Engine) streamWriter(def *tree.Node) (io.Writer, error) {
	stream, err := stringField(def, "stream", "stderr")
	if err != nil {
		return nil, err
	}
	switch stream {
	case "stdout", "ext://sys.stdout":
		return e.stdout, nil
	case "stderr", "ext://sys.stderr":
		return e.stderr, nil
	default:
		return nil, fmt.Errorf("%w: unsupported stream %q", ErrInvalidConfig, stream)
	}
}

// openFile opens a plain file sink. Mode "w" truncates; any other mode
// appends.
func (e *Engine) openFile(s *sink, def *tree.Node) (io.Writer, error) {
	path, err := requiredString(def, "filename")
	if err != nil {
		return nil, err
	}
	mode, err := stringField(def, "mode", "a")
	if err != nil {
		return nil, err
	}
	if e.opts.DryRun {
		return io.Discard, nil
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if mode == "w" {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %q: %w", path, err)
	}

	sw := newSwitchableWriter(file)
	s.closer = sw.Close
	s.reopen = func() error {
		next, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("reopen log file %q: %w", path, err)
		}
		if prev, ok := sw.swap(next).(io.Closer); ok {
			if err := prev.Close(); err != nil {
				return fmt.Errorf("close previous log file %q: %w", path, err)
			}
		}
		return nil
	}
	return sw, nil
}

// openRotatingFile builds a lumberjack-backed sink. Sizes are in megabytes;
// the Python spellings maxBytes and backupCount are also accepted.
func (e *Engine) openRotatingFile(s *sink, def *tree.Node) (io.Writer, error) {
	path, err := requiredString(def, "filename")
	if err != nil {
		return nil, err
	}
	maxSize, err := intField(def, "max_size", 0)
	if err != nil {
		return nil, err
	}
	if maxSize == 0 {
		maxBytes, err := intField(def, "maxBytes", 0)
		if err != nil {
			return nil, err
		}
		maxSize = (maxBytes + megabyte - 1) / megabyte
	}
	backups, err := intField(def, "max_backups", -1)
	if err != nil {
		return nil, err
	}
	if backups < 0 {
		if backups, err = intField(def, "backupCount", 0); err != nil {
			return nil, err
		}
	}
	maxAge, err := intField(def, "max_age", 0)
	if err != nil {
		return nil, err
	}
	compress, err := boolField(def, "compress", false)
	if err != nil {
		return nil, err
	}
	localTime, err := boolField(def, "local_time", false)
	if err != nil {
		return nil, err
	}
	if e.opts.DryRun {
		return io.Discard, nil
	}

	rolling := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: backups,
		MaxAge:     maxAge,
		Compress:   compress,
		LocalTime:  localTime,
	}
	sw := newSwitchableWriter(rolling)
	s.closer = sw.Close
	s.reopen = rolling.Rotate
	return sw, nil
}
