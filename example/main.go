// 客户端 SDK 示例：登录、建群、发消息、翻历史、监听频道事件。
//
//	go run ./example -host http://127.0.0.1:6789 -user alice -token <access token> -peer bob
//
// access token 用 `birdchat token issue alice` 签发。
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/cydxin/birdchat"
	"go.uber.org/zap"
)

func main() {
	host := flag.String("host", "http://127.0.0.1:6789", "服务地址")
	userID := flag.String("user", "alice", "user_id")
	token := flag.String("token", "", "access token")
	peer := flag.String("peer", "bob", "对方 user_id")
	flag.Parse()

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := birdchat.DefaultOptions(*host)
	opts.Logger = log
	opts.CacheDir = os.TempDir()
	sb := birdchat.NewMain(opts)

	me, err := sb.Connect(ctx, *userID, *token)
	if err != nil {
		log.Fatal("connect", zap.Error(err))
	}
	defer sb.Disconnect(context.Background())
	log.Info("connected", zap.String("user_id", me.UserID), zap.String("nickname", me.Nickname))

	conns, cancelConns := sb.ConnectionEvents()
	defer cancelConns()
	go func() {
		for ev := range conns {
			log.Info("connection", zap.Stringer("kind", ev.Kind), zap.Int("attempt", ev.Attempt))
		}
	}()

	ch, created, err := sb.CreateGroupChannel(ctx, &birdchat.GroupChannelParams{
		Name:       *userID + " & " + *peer,
		UserIDs:    []string{*peer},
		IsDistinct: true,
	})
	if err != nil {
		log.Fatal("create channel", zap.Error(err))
	}
	log.Info("channel", zap.String("url", ch.ChannelURL), zap.Bool("created", created))

	events, cancelEvents := sb.ChannelEvents(ch.ChannelURL)
	defer cancelEvents()

	temp, stream := ch.SendUserMessage(ctx, &birdchat.UserMessageParams{Message: "hello from " + *userID})
	log.Info("pending", zap.String("request_id", temp.RequestID()))
	for ev := range stream {
		if ev.Failure != nil {
			log.Error("send failed", zap.Error(ev.Failure.Err))
			continue
		}
		log.Info("sent", zap.Uint64("message_id", ev.Message.MessageID()))
	}

	q := ch.CreatePreviousMessageListQuery()
	page, err := q.LoadNextPage(ctx)
	if err != nil {
		log.Fatal("history", zap.Error(err))
	}
	for _, m := range page {
		if um, ok := m.(*birdchat.UserMessage); ok {
			log.Info("history", zap.Uint64("id", um.MessageID()), zap.String("text", um.Message))
		}
	}

	if err := ch.MarkAsRead(ctx); err != nil {
		log.Warn("mark as read", zap.Error(err))
	}

	log.Info("listening, Ctrl+C to quit")
	idle := time.NewTimer(5 * time.Minute)
	defer idle.Stop()
	for {
		select {
		case ev := <-events:
			if ev.Message != nil {
				log.Info("event", zap.String("kind", string(ev.Kind)), zap.Uint64("message_id", ev.Message.MessageID()))
				continue
			}
			log.Info("event", zap.String("kind", string(ev.Kind)))
		case <-idle.C:
			return
		case <-ctx.Done():
			return
		}
	}
}
