package io

import (
	"io"
	"os"
)

// UnknownSize is returned by SizeOf for readers whose length can not be
// known up front.
const UnknownSize int64 = -1

type lener interface {
	Len() int
}

// SizeOf reports how many bytes are left in r, or UnknownSize.
func SizeOf(r io.Reader) int64 {
	switch f := r.(type) {
	case lener:
		return int64(f.Len())
	case *os.File:
		filestat, err := f.Stat()
		if err != nil {
			return UnknownSize
		}
		return filestat.Size()
	}

	return UnknownSize
}
