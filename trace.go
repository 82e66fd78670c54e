package shareme

import (
	"fmt"
	"reflect"
	"runtime"
	"time"

	"github.com/golang/glog"
)

func Trace(tag string, do func()) {
	trace(tag, func() string {
		do()
		return ""
	})
}

func TraceWithReturn[R any](tag string, do func() R) (result R) {
	trace(tag, func() string {
		result = do()
		return fmt.Sprintf(" = %v", result)
	})
	return
}

func TraceWithReturnError[R any](tag string, do func() (R, error)) (result R, returnErr error) {
	trace(tag, func() string {
		result, returnErr = do()
		if returnErr != nil {
			return fmt.Sprintf(" err = %s", returnErr)
		}
		return fmt.Sprintf(" = %v", result)
	})
	return
}

func trace(tag string, do func() string) {
	start := time.Now()
	glog.Infof("[%-8s]%s (%d)\n", "start", tag, start.UnixMilli())
	doTag := do()
	end := time.Now()
	millis := float32(end.Sub(start)) / float32(time.Millisecond)
	glog.Infof("[%-8s]%s (%.2fms) (%d)%s\n", "end", tag, millis, end.UnixMilli(), doTag)
}

func CallbackName(f any) string {
	return runtime.FuncForPC(reflect.ValueOf(f).Pointer()).Name()
}
