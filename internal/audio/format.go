package audio

import (
	"path/filepath"
	"strings"
)

// DefaultExt is used for uploads whose extension is missing or unknown.
const DefaultExt = ".mp3"

var allowedExts = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".ogg": true,
	".flac": true, ".webm": true, ".mp4": true,
}

// AllowedExt reports whether ext (with dot, any case) is an accepted audio
// container.
func AllowedExt(ext string) bool {
	return allowedExts[strings.ToLower(ext)]
}

// SpoolExt returns the extension to store an upload under. Unknown
// extensions fall back to DefaultExt so ffmpeg still gets a usable hint.
func SpoolExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if allowedExts[ext] {
		return ext
	}
	return DefaultExt
}

// IsChunkFile reports whether name looks like a segment produced by Split.
func IsChunkFile(name string) bool {
	_, ok := ChunkSource(name)
	return ok
}

// ChunkSource returns the source path a chunk file was cut from.
func ChunkSource(name string) (string, bool) {
	i := strings.LastIndex(name, "_chunk")
	if i < 0 || i < len(name)-len(filepath.Base(name)) || !strings.HasSuffix(name, ".mp3") {
		return "", false
	}
	digits := strings.TrimSuffix(name[i+len("_chunk"):], ".mp3")
	if digits == "" {
		return "", false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return name[:i], true
}
