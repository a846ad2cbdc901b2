// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package sysinfo

import (
	"bufio"
	"bytes"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// SysInfo holds the host details printed next to model statistics.
type SysInfo struct {
	Name      string // runtime.GOOS
	Release   string // e.g. "Ubuntu", "macOS"
	Version   string
	GoVersion string
	NumCPU    int
}

// MemInfo reports the memory held by the Go runtime.
type MemInfo struct {
	HeapAlloc  uint64
	HeapInUse  uint64
	Sys        uint64
	NumGC      uint32
	Goroutines int
}

// Stat gathers operating system and runtime information.
func Stat() SysInfo {
	var release, version string

	switch runtime.GOOS {
	case "linux":
		release, version = getLinuxInfo()
	case "darwin":
		release, version = getDarwinInfo()
	case "windows":
		release, version = getWindowsInfo()
	default:
		release, version = "unknown", "unknown"
	}

	return SysInfo{
		Name:      runtime.GOOS,
		Release:   release,
		Version:   version,
		GoVersion: runtime.Version(),
		NumCPU:    runtime.NumCPU(),
	}
}

// Memory reads the current runtime memory statistics. A garbage collection
// is forced first so that released model structures are not counted.
func Memory() MemInfo {
	runtime.GC()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return MemInfo{
		HeapAlloc:  ms.HeapAlloc,
		HeapInUse:  ms.HeapInuse,
		Sys:        ms.Sys,
		NumGC:      ms.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
}

// getLinuxInfo parses /etc/os-release.
func getLinuxInfo() (string, string) {
	f, err := os.Open("/etc/os-release")
	if err != nil {
		return "unknown", "unknown"
	}
	defer f.Close()

	var name, version string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if v, ok := strings.CutPrefix(line, "NAME="); ok {
			name = strings.Trim(v, `"`)
		}
		if v, ok := strings.CutPrefix(line, "VERSION="); ok {
			version = strings.Trim(v, `"`)
		}
	}
	return name, version
}

func getDarwinInfo() (string, string) {
	output, err := exec.Command("sw_vers").Output()
	if err != nil {
		return "macOS", "unknown"
	}

	scanner := bufio.NewScanner(bytes.NewReader(output))
	var productName, productVersion string
	for scanner.Scan() {
		line := scanner.Text()
		if v, ok := strings.CutPrefix(line, "ProductName:"); ok {
			productName = strings.TrimSpace(v)
		}
		if v, ok := strings.CutPrefix(line, "ProductVersion:"); ok {
			productVersion = strings.TrimSpace(v)
		}
	}
	return productName, productVersion
}

func getWindowsInfo() (string, string) {
	output, err := exec.Command("cmd", "/c", "ver").Output()
	if err != nil {
		return "Windows", "unknown"
	}
	return "Windows", strings.TrimSpace(string(output))
}
