package abi

import (
	"fmt"
	"io"
)

// HeaderGenerator emits the C header for the runtime ABI
type HeaderGenerator struct {
	w   io.Writer
	err error
}

// NewHeaderGenerator creates a generator writing to w
func NewHeaderGenerator(w io.Writer) *HeaderGenerator {
	return &HeaderGenerator{w: w}
}

func (g *HeaderGenerator) emit(format string, args ...interface{}) {
	if g.err != nil {
		return
	}
	_, g.err = fmt.Fprintf(g.w, format, args...)
}

// Generate writes the whole header and returns the first write error
func (g *HeaderGenerator) Generate() error {
	g.emit(`/* scoperc runtime ABI */
/* Generated header, do not edit */

#ifndef SCOPERC_RUNTIME_H
#define SCOPERC_RUNTIME_H

#include <stdint.h>

#ifdef __cplusplus
extern "C" {
#endif

/* Growable sequence header */
typedef struct ChengSeqHeader {
    int32_t len;
    int32_t cap;
    void* buffer;
} ChengSeqHeader;

/* Deferred task entry point */
typedef void (*ChengTaskFn)(void* ctx);
`)

	group := Group(-1)
	for _, e := range Exports() {
		if e.Group != group {
			group = e.Group
			g.emit("\n/* %s */\n", group.Title())
		}
		g.emit("%s\n", e.Prototype())
	}

	g.emit(`
#ifdef __cplusplus
}
#endif

#endif /* SCOPERC_RUNTIME_H */
`)
	return g.err
}

// WriteHeader emits the C header to w
func WriteHeader(w io.Writer) error {
	return NewHeaderGenerator(w).Generate()
}
