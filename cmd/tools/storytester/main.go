package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/storyforge/backend/internal/client"
	"github.com/zhouzirui/storyforge/backend/internal/config"
	"github.com/zhouzirui/storyforge/backend/internal/logger"
	model "github.com/zhouzirui/storyforge/backend/internal/model/story"
	"github.com/zhouzirui/storyforge/backend/internal/service/retry"
	"github.com/zhouzirui/storyforge/backend/internal/story"
)

func main() {
	envErr := godotenv.Load()

	log, err := logger.New(logger.Config{Level: os.Getenv("LOG_LEVEL"), Encoding: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "创建日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	if envErr != nil {
		log.Debug("无法加载 .env，改用系统环境变量", zap.Error(envErr))
	}

	defaults := story.DefaultSettings()
	server := flag.String("server", defaultServerURL(), "StoryForge 服务地址")
	name := flag.String("name", "", "角色名，留空则为 Hero")
	avatar := flag.String("avatar", defaults.Avatar, "角色 emoji")
	world := flag.String("world", defaults.WorldSetting, "世界设定 key")
	personality := flag.String("personality", defaults.Personality, "性格 key")
	ending := flag.String("ending", defaults.EndingType, "结局类型 key")
	auto := flag.Bool("auto", false, "自动选择第一个选项，无需交互")
	wait := flag.Bool("wait", true, "被限流时等待后重试")
	sessionID := flag.String("session", "", "自定义 sessionID，留空则自动生成")
	timeout := flag.Duration("timeout", 5*time.Minute, "整局游戏的超时时间")

	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	opts := []client.Option{}
	if *sessionID != "" {
		opts = append(opts, client.WithSessionID(*sessionID))
	}
	c := client.New(*server, opts...)

	catalog, err := c.Catalog(ctx)
	if err != nil {
		log.Fatal("获取故事目录失败", zap.String("server", *server), zap.Error(err))
	}

	var gen story.Generator = c
	if *wait {
		gen = &patientGenerator{next: c, log: log}
	}
	session := story.NewSession(gen, model.NewMemoryStore(catalog))

	if err := session.Customize(); err != nil {
		log.Fatal("进入自定义步骤失败", zap.Error(err))
	}
	if err := session.UpdateSettings(story.Settings{
		WorldSetting:  *world,
		CharacterName: *name,
		Personality:   *personality,
		EndingType:    *ending,
		Avatar:        *avatar,
	}); err != nil {
		log.Fatal("故事设置无效", zap.Error(err))
	}

	log.Info("开始新的冒险", zap.String("server", *server), zap.String("session", c.SessionID()))
	if err := session.Start(ctx); err != nil {
		log.Fatal("生成开篇失败", zap.Error(err))
	}

	if len(session.Snapshot().StoryHistory) == 0 {
		log.Fatal("开篇响应中没有 STORY 段")
	}

	in := bufio.NewReader(os.Stdin)
	shown := 0
	for {
		snap := session.Snapshot()
		if len(snap.StoryHistory) == shown {
			log.Warn("响应中没有 STORY 段，请重新选择")
		} else {
			shown = len(snap.StoryHistory)
			fmt.Printf("\n=== Chapter %d ===\n%s\n", shown, snap.Story)
		}

		if session.Finished() {
			fmt.Println("\n~ The End ~")
			break
		}

		for i, choice := range snap.Choices {
			fmt.Printf("  %d. %s\n", i+1, choice)
		}

		choice := snap.Choices[0]
		if !*auto {
			choice, err = readChoice(in, snap.Choices)
			if err != nil {
				log.Fatal("读取选项失败", zap.Error(err))
			}
		}
		fmt.Printf("> %s\n", choice)

		if err := session.Choose(ctx, choice); err != nil {
			log.Fatal("生成下一章失败", zap.Error(err))
		}
	}

	final := session.Snapshot()
	log.Info("冒险结束",
		zap.Int("chapters", len(final.StoryHistory)),
		zap.Strings("choices", final.ChoiceHistory),
	)
}

// patientGenerator waits out server-side rate limits before giving up.
type patientGenerator struct {
	next story.Generator
	log  *zap.Logger
}

func (g *patientGenerator) Generate(ctx context.Context, req model.GenerationRequest) (model.GenerationResponse, error) {
	var resp model.GenerationResponse
	policy := retry.Policy{
		MaxAttempts: 3,
		Retryable: func(err error) bool {
			var limited *client.RateLimitedError
			return errors.As(err, &limited)
		},
		Backoff: func(_ int, err error) time.Duration {
			var limited *client.RateLimitedError
			if errors.As(err, &limited) && limited.WaitSeconds > 0 {
				return time.Duration(limited.WaitSeconds) * time.Second
			}
			return 20 * time.Second
		},
		OnRetry: func(_ int, delay time.Duration, err error) {
			g.log.Info("服务端限流，等待后重试", zap.Duration("delay", delay), zap.Error(err))
		},
	}

	err := policy.Do(ctx, func(ctx context.Context, _ int) error {
		out, err := g.next.Generate(ctx, req)
		if err != nil {
			return err
		}
		resp = out
		return nil
	})
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return model.GenerationResponse{}, exhausted.Err
	}
	return resp, err
}

func readChoice(in *bufio.Reader, choices []string) (string, error) {
	for {
		fmt.Printf("Choose 1-%d: ", len(choices))
		line, err := in.ReadString('\n')
		if err != nil {
			return "", err
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr == nil && n >= 1 && n <= len(choices) {
			return choices[n-1], nil
		}
		fmt.Println("invalid choice")
	}
}

// defaultServerURL points at the local server configured by PORT.
func defaultServerURL() string {
	cfg, err := config.Load()
	if err != nil || !strings.HasPrefix(cfg.Server.Addr, ":") {
		return "http://localhost:3001"
	}
	return "http://localhost" + cfg.Server.Addr
}
