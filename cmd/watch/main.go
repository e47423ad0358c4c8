package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/notifyproto"
)

func main() {
	var (
		url = flag.String("url", "ws://localhost:8080/v1/ws", "notify ws url")
		raw = flag.Bool("raw", false, "print raw JSON instead of formatted lines")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := notifyproto.SubscribeMsg{
		Type:            notifyproto.TypeSubscribe,
		ProtocolVersion: notifyproto.Version,
	}
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if *raw {
			logger.Printf("%s", msg)
			continue
		}
		base, err := notifyproto.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case notifyproto.TypeClock:
			var m notifyproto.ClockMsg
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			phase := "day"
			if m.IsNight {
				phase = "night"
			}
			logger.Printf("CLOCK day=%d %02d:%02d (%s)", m.Day, m.Hour, m.Minute, phase)

		case notifyproto.TypeOwnership:
			var m notifyproto.OwnershipMsg
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			logger.Printf("OWNERSHIP owned=[%s] pending=[%s]",
				strings.Join(m.Owned, " "), strings.Join(m.Pending, " "))

		case notifyproto.TypeSpiritStates:
			var m notifyproto.SpiritStatesMsg
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			for _, s := range m.Spirits {
				logger.Printf("STATE %s lvl=%d xp=%.2f serenity=%.2f appetite=%.2f integrity=%.2f cd=%d asg=%d",
					s.ID, s.Level, s.XP01, s.Serenity01, s.Appetite01, s.Integrity01, len(s.Cooldowns), len(s.Assignments))
			}

		case notifyproto.TypeLevelUp:
			var m notifyproto.LevelUpMsg
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			logger.Printf("LEVEL_UP %s -> %d (hour %.1f)", m.SpiritID, m.Level, m.GameHour)

		case notifyproto.TypeActionResult:
			var m notifyproto.ActionResultMsg
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			if m.OK {
				logger.Printf("ACTION %s on %s ok", m.ActionID, m.SpiritID)
			} else {
				logger.Printf("ACTION %s on %s denied code=%s detail=%q", m.ActionID, m.SpiritID, m.Code, m.Detail)
			}
		}
	}
}
