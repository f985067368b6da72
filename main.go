package main

import "github.com/examwatch/noticebot/cmd"

func main() {
	cmd.Execute()
}
