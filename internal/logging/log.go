package logging

import (
	"io"
	"log"
)

// DefaultFlags keeps timestamps on; pass 0 for bare lines.
const DefaultFlags = log.LstdFlags

func Init(w io.Writer, flags int) {
	if w != nil {
		log.SetOutput(w)
	}
	log.SetFlags(flags)
}

func Debug(format string, v ...interface{}) {
	log.Printf("[DEBG] "+format+"\n", v...)
}

func Info(format string, v ...interface{}) {
	log.Printf("[INFO] "+format+"\n", v...)
}

func Warn(format string, v ...interface{}) {
	log.Printf("[WARN] "+format+"\n", v...)
}

func Error(format string, v ...interface{}) {
	log.Printf("[ERRO] "+format+"\n", v...)
}
