package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/a2y-d5l/cmdassert/awaiter"
	"github.com/a2y-d5l/cmdassert/command"
	"github.com/a2y-d5l/cmdassert/expect"
)

// runEchoScenario spawns echo and asserts on its single line of output.
func runEchoScenario() error {
	cfg := command.New("echo", "Hello from cmdassert")
	cfg.Stdout = cfg.Stdout.HasLines("Hello from cmdassert").HasLineCount(1)

	result, err := expect.Execute(cfg)
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	return result.AssertSuccess()
}

// runTimeoutScenario spawns a shell that sleeps longer than the bound we
// give ExecuteWithTimeout, and asserts the run actually timed out.
func runTimeoutScenario() error {
	cfg := command.New("sh", "-c", "sleep 0.5")

	result, err := expect.ExecuteWithTimeout(cfg, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	return result.AssertTimeout()
}

// runGreetServerScenario spawns this same binary in its hidden "serve" mode,
// awaits the port it announces on stdout, connects to it, and checks the
// greeting it reads back.
func runGreetServerScenario() error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve self: %w", err)
	}

	portAwaiter, err := awaiter.Matching(`listening on port: (\d+)`)
	if err != nil {
		return fmt.Errorf("compile port awaiter: %w", err)
	}
	port := awaiter.Map(portAwaiter, strconv.Atoi)

	cfg := command.New(self, "serve")
	cfg.Stdout = cfg.Stdout.Await(portAwaiter)

	sup, err := expect.Start(cfg)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer sup.Close()

	p, err := port.Await(10 * time.Second)
	if err != nil {
		return fmt.Errorf("await port: %w", err)
	}

	greeting, err := readGreeting(p)
	if err != nil {
		return fmt.Errorf("read greeting: %w", err)
	}
	fmt.Printf("  server greeted us with %q\n", greeting)
	return nil
}

func readGreeting(port int) (string, error) {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 5*time.Second)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
