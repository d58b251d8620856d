// Command vst replays block traces against a page-mapping FTL running on a
// virtual SSD and checks that every read returns the latest write.
package main

import "github.com/sarchlab/vst/vst/cmd"

func main() {
	cmd.Execute()
}
