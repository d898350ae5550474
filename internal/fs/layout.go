package fs

import "time"

// seedFile describes one file in the default boot layout.
type seedFile struct {
	path    string
	content string
}

var layoutDirs = []string{
	"/bin",
	"/etc",
	"/home",
	"/home/user",
	"/home/user/documents",
	"/home/user/downloads",
	"/tmp",
	"/usr",
	"/usr/share",
	"/usr/share/doc",
	"/var",
	"/var/log",
}

var layoutFiles = []seedFile{
	{"/etc/hostname", "webterm\n"},
	{"/etc/motd", "Welcome to webterm.\nType 'help' to get started.\n"},
	{"/etc/os-release", "NAME=\"WebTerm OS\"\nVERSION_ID=\"1\"\n"},
	{"/home/user/.profile", "# ~/.profile: executed on login\nexport PATH=/bin\n"},
	{"/home/user/readme.txt", "Files in /home and /tmp persist across sessions.\n"},
	{"/usr/share/doc/about.txt", "A browser-resident shell with a persistent home directory.\n"},
}

// defaultLayout builds the fresh boot tree. It runs on every boot before the
// durable store is overlaid, so seeded content is idempotent and never stale.
func defaultLayout(now time.Time) *Node {
	root := NewDirectory("/", now)
	root.Owner = "root"
	root.Group = "root"

	for _, dir := range layoutDirs {
		node := root
		for _, seg := range Split(dir) {
			child, ok := node.Child(seg)
			if !ok {
				child = NewDirectory(seg, now)
				if seg != "user" && !isUserPath(dir) {
					child.Owner = "root"
					child.Group = "root"
				}
				node.attach(child)
			}
			node = child
		}
	}

	for _, sf := range layoutFiles {
		node := root
		segs := Split(sf.path)
		for _, seg := range segs[:len(segs)-1] {
			child, _ := node.Child(seg)
			node = child
		}
		file := NewFile(segs[len(segs)-1], sf.content, now)
		if !isUserPath(sf.path) {
			file.Owner = "root"
			file.Group = "root"
		}
		node.attach(file)
	}

	return root
}

func isUserPath(path string) bool {
	return len(path) >= 5 && path[:5] == "/home"
}
