package remote

const indexHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>tunes</title>
  <style>
    * { margin: 0; padding: 0; box-sizing: border-box; }
    body { background: #111; color: #eee; font-family: sans-serif; padding: 16px; max-width: 480px; margin: auto; }
    h1 { font-size: 20px; margin-bottom: 4px; }
    #artist { color: #999; margin-bottom: 12px; }
    #progress { width: 100%; margin: 8px 0; }
    #time { font-family: monospace; color: #999; font-size: 12px; }
    .row { display: flex; gap: 8px; margin: 12px 0; flex-wrap: wrap; }
    button { flex: 1; padding: 12px; border: 0; border-radius: 6px; background: #333; color: #eee; font-size: 16px; touch-action: manipulation; }
    button.on { background: #1db954; color: #000; }
    ol { margin-top: 12px; padding-left: 24px; }
    li { padding: 4px 0; cursor: pointer; color: #bbb; }
    li.current { color: #1db954; font-weight: bold; }
    #status { position: fixed; top: 8px; right: 8px; font-size: 12px; padding: 2px 8px; border-radius: 4px; background: #800; }
    #status.connected { background: #060; }
  </style>
</head>
<body>
  <div id="status">offline</div>
  <h1 id="title">Nothing playing</h1>
  <div id="artist"></div>
  <input id="progress" type="range" min="0" max="0" step="1" value="0">
  <div id="time">0:00 / 0:00</div>
  <div class="row">
    <button data-cmd="shuffle" id="shuffle">shuffle</button>
    <button data-cmd="previous">prev</button>
    <button data-cmd="toggle" id="toggle">play</button>
    <button data-cmd="next">next</button>
    <button data-cmd="repeat" id="repeat">repeat: off</button>
  </div>
  <div class="row">
    <button data-cmd="mute" id="mute">mute</button>
    <input id="volume" type="range" min="0" max="1" step="0.01" style="flex: 3">
  </div>
  <ol id="queue"></ol>
<script>
  const $ = (id) => document.getElementById(id);
  const fmt = (s) => {
    if (!isFinite(s) || s < 0) s = 0;
    const m = Math.floor(s / 60), sec = Math.floor(s % 60);
    return m + ':' + String(sec).padStart(2, '0');
  };
  let state = null;
  let dragging = false;

  function post(path, body) {
    return fetch('/api/' + path, {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(body || {}),
    });
  }

  function render(s) {
    state = s;
    const t = s.currentTrack;
    $('title').textContent = t ? t.title : 'Nothing playing';
    $('artist').textContent = t ? t.artist : '';
    $('toggle').textContent = s.isPlaying ? 'pause' : 'play';
    $('shuffle').classList.toggle('on', s.isShuffled);
    $('mute').classList.toggle('on', s.isMuted);
    $('repeat').textContent = 'repeat: ' + s.repeatMode;
    $('repeat').classList.toggle('on', s.repeatMode !== 'off');
    if (!dragging) {
      $('progress').max = Math.floor(s.duration || 0);
      $('progress').value = Math.floor(s.currentTime || 0);
    }
    $('time').textContent = fmt(s.currentTime) + ' / ' + fmt(s.duration);
    $('volume').value = s.volume;

    const ol = $('queue');
    ol.innerHTML = '';
    (s.queue || []).forEach((tr, i) => {
      const li = document.createElement('li');
      li.textContent = tr.title + ' - ' + tr.artist;
      if (t && tr.id === t.id) li.className = 'current';
      li.onclick = () => post('queue', { index: i });
      ol.appendChild(li);
    });
  }

  document.querySelectorAll('button[data-cmd]').forEach((b) => {
    b.onclick = () => post(b.dataset.cmd);
  });
  $('progress').oninput = () => { dragging = true; };
  $('progress').onchange = () => {
    dragging = false;
    post('seek', { time: Number($('progress').value) });
  };
  $('volume').onchange = () => post('volume', { volume: Number($('volume').value) });

  function connect() {
    const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
    const ws = new WebSocket(proto + '//' + location.host + '/ws');
    ws.onopen = () => { $('status').textContent = 'live'; $('status').className = 'connected'; };
    ws.onmessage = (e) => render(JSON.parse(e.data));
    ws.onclose = () => {
      $('status').textContent = 'offline';
      $('status').className = '';
      setTimeout(connect, 2000);
    };
  }
  connect();
</script>
</body>
</html>
`
