package main

import (
	"fmt"

	discordrpc "github.com/tr1xem/go-discordrpc"

	"github.com/alvarorichard/streamlive/internal/util"
)

// liveDiscordClientID reuses the teacher's existing Discord application
// (internal/api/discord.go, internal/discord/init.go) rather than
// registering a second app just for live downloads.
const liveDiscordClientID = "1302721937717334128"

// reportLiveDownload logs into Discord Rich Presence and reports
// "downloading <title> (live)" for the duration of one download, mirroring the teacher's
// episode-watching presence (internal/player/discord.go) but sourced from
// a resolver Handle's title instead of an AniList anime name. Best-effort:
// a Discord failure never aborts a download, only the presence update.
func reportLiveDownload(title string) func() {
	if err := discordrpc.Login(liveDiscordClientID); err != nil {
		util.Debug("streamlive: discord rich presence login failed", "err", err)
		return func() {}
	}

	activity := discordrpc.Activity{
		Details: title,
		State:   fmt.Sprintf("downloading %s (live)", title),
	}
	if err := discordrpc.SetActivity(activity); err != nil {
		util.Debug("streamlive: discord rich presence activity failed", "err", err)
	}

	return func() { discordrpc.Logout() }
}
