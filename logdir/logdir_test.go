package logdir

import (
	"log"
	"testing"
)

func TestLogDir(t *testing.T) {
	b, err := New(t.TempDir(), "testlogdir")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	log := log.New(b, "", log.Flags())
	for i := 0; i < 1024*1024; i++ {
		log.Printf("hello world")
	}
}
