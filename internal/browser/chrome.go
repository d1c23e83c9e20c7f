package browser

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/neboloop/promptpulse/internal/logging"
)

// BrowserKind identifies the type of Chromium-based browser.
type BrowserKind string

const (
	BrowserChrome   BrowserKind = "chrome"
	BrowserBrave    BrowserKind = "brave"
	BrowserEdge     BrowserKind = "edge"
	BrowserChromium BrowserKind = "chromium"
	BrowserCustom   BrowserKind = "custom"
)

// BrowserExecutable represents a found browser binary.
type BrowserExecutable struct {
	Kind BrowserKind
	Path string
}

// RunningChrome represents a Chrome instance started by LaunchChrome.
type RunningChrome struct {
	PID         int
	Executable  *BrowserExecutable
	UserDataDir string
	CDPPort     int
	StartedAt   time.Time
	cmd         *exec.Cmd
}

type candidate struct {
	kind BrowserKind
	path string
}

// FindChromeExecutable finds a Chrome/Chromium browser on the system.
// customPath wins when set.
func FindChromeExecutable(customPath string) (*BrowserExecutable, error) {
	if customPath != "" {
		if !fileExists(customPath) {
			return nil, fmt.Errorf("browser executable not found: %s", customPath)
		}
		return &BrowserExecutable{Kind: BrowserCustom, Path: customPath}, nil
	}

	for _, c := range platformCandidates() {
		if fileExists(c.path) {
			return &BrowserExecutable{Kind: c.kind, Path: c.path}, nil
		}
	}

	for _, c := range []candidate{
		{BrowserChrome, "google-chrome"},
		{BrowserChrome, "google-chrome-stable"},
		{BrowserChromium, "chromium"},
		{BrowserChromium, "chromium-browser"},
		{BrowserEdge, "microsoft-edge"},
		{BrowserBrave, "brave-browser"},
	} {
		if p, err := exec.LookPath(c.path); err == nil {
			return &BrowserExecutable{Kind: c.kind, Path: p}, nil
		}
	}
	return nil, fmt.Errorf("no supported browser found (Chrome/Brave/Edge/Chromium) on %s", runtime.GOOS)
}

func platformCandidates() []candidate {
	home := os.Getenv("HOME")
	switch runtime.GOOS {
	case "darwin":
		return []candidate{
			{BrowserChrome, "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"},
			{BrowserChrome, filepath.Join(home, "Applications/Google Chrome.app/Contents/MacOS/Google Chrome")},
			{BrowserBrave, "/Applications/Brave Browser.app/Contents/MacOS/Brave Browser"},
			{BrowserEdge, "/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge"},
			{BrowserChromium, "/Applications/Chromium.app/Contents/MacOS/Chromium"},
		}
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		programFiles := os.Getenv("ProgramFiles")
		if programFiles == "" {
			programFiles = `C:\Program Files`
		}
		programFilesX86 := os.Getenv("ProgramFiles(x86)")
		if programFilesX86 == "" {
			programFilesX86 = `C:\Program Files (x86)`
		}
		var out []candidate
		if localAppData != "" {
			out = append(out,
				candidate{BrowserChrome, filepath.Join(localAppData, "Google", "Chrome", "Application", "chrome.exe")},
				candidate{BrowserBrave, filepath.Join(localAppData, "BraveSoftware", "Brave-Browser", "Application", "brave.exe")},
			)
		}
		return append(out,
			candidate{BrowserChrome, filepath.Join(programFiles, "Google", "Chrome", "Application", "chrome.exe")},
			candidate{BrowserChrome, filepath.Join(programFilesX86, "Google", "Chrome", "Application", "chrome.exe")},
			candidate{BrowserEdge, filepath.Join(programFilesX86, "Microsoft", "Edge", "Application", "msedge.exe")},
		)
	default:
		return []candidate{
			{BrowserChrome, "/usr/bin/google-chrome"},
			{BrowserChrome, "/usr/bin/google-chrome-stable"},
			{BrowserBrave, "/usr/bin/brave-browser"},
			{BrowserEdge, "/usr/bin/microsoft-edge"},
			{BrowserChromium, "/usr/bin/chromium"},
			{BrowserChromium, "/usr/bin/chromium-browser"},
			{BrowserChromium, "/snap/bin/chromium"},
		}
	}
}

// IsChromeReachable checks if Chrome CDP is responding.
func IsChromeReachable(cdpURL string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	versionURL := strings.TrimSuffix(cdpURL, "/") + "/json/version"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, versionURL, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// LaunchChrome starts Chrome with a DevTools port on cfg.CDPPort and waits
// for the endpoint to answer.
func LaunchChrome(cfg Config) (*RunningChrome, error) {
	exe, err := FindChromeExecutable(cfg.ExecutablePath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.UserDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create user data dir: %w", err)
	}

	cmd := exec.Command(exe.Path, buildChromeArgs(cfg)...)
	setChromeProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start Chrome: %w", err)
	}

	running := &RunningChrome{
		PID:         cmd.Process.Pid,
		Executable:  exe,
		UserDataDir: cfg.UserDataDir,
		CDPPort:     cfg.CDPPort,
		StartedAt:   time.Now(),
		cmd:         cmd,
	}

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if IsChromeReachable(cfg.CDPURL(), 500*time.Millisecond) {
			logging.Infof("Chrome (%s) started pid=%d cdp=%d", exe.Kind, running.PID, cfg.CDPPort)
			return running, nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	killChromeProcessGroup(cmd, true)
	_ = cmd.Wait()
	return nil, fmt.Errorf("Chrome CDP did not start on port %d within 15s", cfg.CDPPort)
}

// StopChrome stops a running Chrome instance, escalating to a kill after timeout.
func StopChrome(running *RunningChrome, timeout time.Duration) error {
	if running == nil || running.cmd == nil || running.cmd.Process == nil {
		return nil
	}

	killChromeProcessGroup(running.cmd, false)

	done := make(chan error, 1)
	go func() {
		done <- running.cmd.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		killChromeProcessGroup(running.cmd, true)
		return nil
	}
}

func buildChromeArgs(cfg Config) []string {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", cfg.CDPPort),
		fmt.Sprintf("--user-data-dir=%s", cfg.UserDataDir),
		fmt.Sprintf("--window-size=%d,%d", cfg.WindowWidth, cfg.WindowHeight),
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-sync",
		"--disable-background-networking",
		"--disable-component-update",
		"--disable-features=Translate,MediaRouter",
		"--disable-session-crashed-bubble",
		"--hide-crash-restore-bubble",
		"--password-store=basic",
	}

	if cfg.Headless {
		args = append(args, "--headless=new", "--disable-gpu")
	}
	if cfg.NoSandbox {
		args = append(args, "--no-sandbox", "--disable-setuid-sandbox")
	}
	if runtime.GOOS == "linux" {
		args = append(args, "--disable-dev-shm-usage")
	}

	// Always open a blank tab to ensure a target exists
	return append(args, "about:blank")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
