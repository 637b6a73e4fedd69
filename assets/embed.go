package assets

import "embed"

// ViewerFS embeds the browser viewer served at / by the serve command.
//
//go:embed viewer/*
var ViewerFS embed.FS
