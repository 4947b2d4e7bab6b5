//go:build darwin

package permissions

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AVFoundation -framework Foundation
#import <AVFoundation/AVFoundation.h>

static AVMediaType mediaType(int video) {
    return video ? AVMediaTypeVideo : AVMediaTypeAudio;
}

int checkPermission(int video) {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:mediaType(video)];
    return (int)status;
}

// requestPermission shows the system prompt and blocks until it is answered.
int requestPermission(int video) {
    __block BOOL result = NO;
    dispatch_semaphore_t sema = dispatch_semaphore_create(0);
    [AVCaptureDevice requestAccessForMediaType:mediaType(video) completionHandler:^(BOOL granted) {
        result = granted;
        dispatch_semaphore_signal(sema);
    }];
    dispatch_semaphore_wait(sema, DISPATCH_TIME_FOREVER);
    return result ? 1 : 0;
}
*/
import "C"

import (
	"fmt"

	"github.com/petems/camtray/internal/media"
)

const (
	PermissionNotDetermined = 0
	PermissionRestricted    = 1
	PermissionDenied        = 2
	PermissionAuthorized    = 3
)

// Check returns the current camera (video) or microphone permission status
func Check(video bool) int {
	return int(C.checkPermission(boolToC(video)))
}

// Request triggers the system permission dialog and waits for the answer
func Request(video bool) bool {
	return C.requestPermission(boolToC(video)) == 1
}

// EnsureCapture makes sure the process may open the requested devices,
// prompting the user when the status is not determined yet.
func EnsureCapture(audio, video bool) error {
	if video {
		if err := ensure(true, "camera"); err != nil {
			return err
		}
	}
	if audio {
		if err := ensure(false, "microphone"); err != nil {
			return err
		}
	}
	return nil
}

func ensure(video bool, name string) error {
	switch Check(video) {
	case PermissionAuthorized:
		return nil
	case PermissionNotDetermined:
		if Request(video) {
			return nil
		}
	}
	return media.PermissionError(fmt.Errorf("%s access not granted", name))
}

func boolToC(b bool) C.int {
	if b {
		return 1
	}
	return 0
}
