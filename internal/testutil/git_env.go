package testutil

import "os"

// UnsetGitEnv scrubs git environment variables that redirect repository
// discovery or object storage. Tests that spawn a real git process call
// this once up front so results depend only on the working directory
// they set, not on whatever repository the test runner happens to sit in.
func UnsetGitEnv() {
	for _, key := range []string{
		"GIT_DIR",
		"GIT_WORK_TREE",
		"GIT_INDEX_FILE",
		"GIT_COMMON_DIR",
		"GIT_PREFIX",
		"GIT_OBJECT_DIRECTORY",
		"GIT_ALTERNATE_OBJECT_DIRECTORIES",
		"GIT_CEILING_DIRECTORIES",
	} {
		_ = os.Unsetenv(key)
	}
}
