package main

import "github.com/shuaiyuancn/2026-better-booking/cmd"

func main() {
	cmd.Execute()
}
