package filesystem

import "strings"

// NewDemoDevice returns an in-memory device populated with a small phone-like
// layout, used by the mem:// device URL.
func NewDemoDevice(local LocalFileStore) *MockRemoteFileSystem {
	device := NewMockRemoteFileSystem(local)

	device.
		AddFile("/sdcard/DCIM/Camera/IMG_0001.jpg", []byte(strings.Repeat("jpeg", 4096))).
		AddFile("/sdcard/DCIM/Camera/IMG_0002.jpg", []byte(strings.Repeat("jpeg", 2048))).
		AddFile("/sdcard/Download/readme.txt", []byte("device explorer demo\n")).
		AddFile("/sdcard/Download/.nomedia", nil).
		AddDir("/sdcard/Music").
		AddFile("/data/local/tmp/trace.log", []byte("boot ok\n")).
		AddSymlink("/sdcard/Pictures", "/sdcard/DCIM/Camera").
		AddSymlink("/sdcard/latest.jpg", "/sdcard/DCIM/Camera/IMG_0002.jpg").
		AddSymlink("/sdcard/broken", "/sdcard/nowhere")

	return device
}
